package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func (e *testEnv) accountRouter(user *models.User) *gin.Engine {
	r := gin.New()
	g := r.Group("/api", asUser(user))

	g.GET("/cart", GetCart(e.store.Cart()))
	g.POST("/cart", AddToCart(e.store.Cart()))
	g.DELETE("/cart/remove/:productId", RemoveFromCart(e.store.Cart()))
	g.PUT("/cart/update/:productId", UpdateCartQuantity(e.store.Cart()))
	g.DELETE("/cart/clear", ClearCart(e.store.Cart()))

	g.GET("/wishlist", GetWishlist(e.store.Wishlist()))
	g.POST("/wishlist", AddToWishlist(e.store.Wishlist()))
	g.DELETE("/wishlist/remove/:productId", RemoveFromWishlist(e.store.Wishlist()))
	g.GET("/wishlist/check/:productId", CheckWishlist(e.store.Wishlist()))

	g.POST("/order", PlaceOrder(e.store.Orders(), e.mail))
	g.GET("/orders", GetMyOrders(e.store.Orders()))
	g.GET("/orders/:userId", GetUserOrders(e.store.Orders()))

	g.POST("/subscribe", Subscribe(e.store.Subscriptions(), e.mail))
	r.POST("/api/contact", SubmitContact(e.store.Contacts()))
	return r
}

func (e *testEnv) createProduct(t *testing.T, name string, original, discounted float64) models.Product {
	t.Helper()
	p := models.Product{Name: name, OriginalPrice: original, DiscountedPrice: discounted, CategoryID: models.StringList{"fruit"}}
	require.NoError(t, e.store.Products().Create(context.Background(), &p))
	return p
}

func TestCartAddIncrementsExistingItem(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "a@b.com")
	r := e.accountRouter(user)

	item := gin.H{"product": gin.H{"productId": "p1", "title": "Apple", "price": 2.5}}
	w := doJSON(t, r, http.MethodPost, "/api/cart", item)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodPost, "/api/cart", item)
	require.Equal(t, http.StatusCreated, w.Code)

	cart, err := e.store.Cart().Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, 2, cart[0].Quantity)
}

func TestCartValidation(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "a@b.com")
	r := e.accountRouter(user)

	w := doJSON(t, r, http.MethodPost, "/api/cart", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid product data", decodeBody(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/api/cart", gin.H{"product": gin.H{"title": "no id"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/cart/update/p1", gin.H{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Quantity must be at least 1", decodeBody(t, w)["error"])

	w = doJSON(t, r, http.MethodPut, "/api/cart/update/p1", gin.H{"quantity": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Item not found in cart", decodeBody(t, w)["error"])
}

func TestCartUpdateRemoveClear(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "a@b.com")
	r := e.accountRouter(user)

	for _, id := range []string{"p1", "p2"} {
		w := doJSON(t, r, http.MethodPost, "/api/cart", gin.H{"product": gin.H{"productId": id}})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodPut, "/api/cart/update/p1", gin.H{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/cart/remove/p2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Item removed from cart", body["message"])
	require.Len(t, body["cart"], 1)

	w = doJSON(t, r, http.MethodDelete, "/api/cart/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cart cleared successfully", decodeBody(t, w)["message"])

	cart, err := e.store.Cart().Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart)
}

func TestCartUnknownUser(t *testing.T) {
	e := newEnv(t)
	ghost := &models.User{Email: "ghost@b.com"}
	r := e.accountRouter(ghost)

	w := doJSON(t, r, http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decodeBody(t, w)["error"])
}

func TestWishlist(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "a@b.com")
	r := e.accountRouter(user)

	w := doJSON(t, r, http.MethodPost, "/api/wishlist", gin.H{"product": gin.H{"productId": "p1", "title": "Apple"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Product added to wishlist", decodeBody(t, w)["message"])

	w = doJSON(t, r, http.MethodPost, "/api/wishlist", gin.H{"product": gin.H{"productId": "p1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Product already in wishlist", decodeBody(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/api/wishlist", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Product information is required", decodeBody(t, w)["error"])

	w = doJSON(t, r, http.MethodPost, "/api/wishlist", gin.H{"product": gin.H{"title": "Pear"}})
	require.Equal(t, http.StatusOK, w.Code)
	generated := decodeBody(t, w)["product"].(map[string]interface{})["productId"].(string)
	assert.Len(t, generated, 24)

	w = doJSON(t, r, http.MethodGet, "/api/wishlist/check/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["isWishlisted"])

	w = doJSON(t, r, http.MethodDelete, "/api/wishlist/remove/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/wishlist/check/p1", nil)
	assert.Equal(t, false, decodeBody(t, w)["isWishlisted"])

	items, err := e.store.Wishlist().Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func validOrder() gin.H {
	return gin.H{
		"firstName":     "Ada",
		"streetAddress": "1 Main St",
		"town":          "Springfield",
		"apartment":     "2B",
		"payment":       "cod",
	}
}

func TestPlaceOrder(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "a@b.com")
	r := e.accountRouter(user)

	w := doJSON(t, r, http.MethodPost, "/api/order", validOrder())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cart is empty", decodeBody(t, w)["error"])

	apple := e.createProduct(t, "Apple", 10, 8)
	pear := e.createProduct(t, "Pear", 5, 0)
	ctx := context.Background()
	_, err := e.store.Cart().Add(ctx, user.ID, models.ProductSnapshot{ProductID: apple.ID.Hex(), Price: 1})
	require.NoError(t, err)
	_, err = e.store.Cart().Add(ctx, user.ID, models.ProductSnapshot{ProductID: apple.ID.Hex()})
	require.NoError(t, err)
	_, err = e.store.Cart().Add(ctx, user.ID, models.ProductSnapshot{ProductID: pear.ID.Hex()})
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodPost, "/api/order", validOrder())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Order placed successfully", body["message"])
	assert.Equal(t, 21.0, body["totalPrice"])
	assert.Equal(t, 1, e.mail.count())
	assert.Equal(t, "a@b.com", e.mail.sent[0].to)

	cart, err := e.store.Cart().Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart)

	w = doJSON(t, r, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), body["orderId"].(string))

	w = doJSON(t, r, http.MethodGet, "/api/orders/"+user.ID.Hex(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/orders/"+apple.ID.Hex(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPlaceOrderRejectsMissingProductAndBadPayment(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "a@b.com")
	r := e.accountRouter(user)

	_, err := e.store.Cart().Add(context.Background(), user.ID, models.ProductSnapshot{ProductID: "gone"})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/order", validOrder())
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Product not found", body["error"])
	assert.Equal(t, "gone", body["productId"])

	order := validOrder()
	order["payment"] = "card"
	w = doJSON(t, r, http.MethodPost, "/api/order", order)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation failed", decodeBody(t, w)["error"])
}

func TestPlaceOrderSurvivesMailFailure(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "a@b.com")
	r := e.accountRouter(user)

	p := e.createProduct(t, "Apple", 10, 0)
	_, err := e.store.Cart().Add(context.Background(), user.ID, models.ProductSnapshot{ProductID: p.ID.Hex()})
	require.NoError(t, err)

	e.mail.err = errors.New("smtp down")
	w := doJSON(t, r, http.MethodPost, "/api/order", validOrder())
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSubscribe(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "a@b.com")
	r := e.accountRouter(user)

	w := doJSON(t, r, http.MethodPost, "/api/subscribe", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Subscribed successfully! Confirmation email sent.", decodeBody(t, w)["message"])
	assert.True(t, e.store.Subscribed("a@b.com"))

	e.mail.err = errors.New("smtp down")
	w = doJSON(t, r, http.MethodPost, "/api/subscribe", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to subscribe and send email.", decodeBody(t, w)["error"])
}

func TestContact(t *testing.T) {
	e := newEnv(t)
	r := e.accountRouter(e.createUser(t, "a@b.com"))

	w := doJSON(t, r, http.MethodPost, "/api/contact", gin.H{"name": "Ada", "email": "ada@b.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["details"], "message is required")

	w = doJSON(t, r, http.MethodPost, "/api/contact", gin.H{"name": "Ada", "email": "ada@b.com", "message": "Hello"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Message sent successfully", decodeBody(t, w)["message"])
	require.Len(t, e.store.ContactMessages(), 1)
	assert.Equal(t, "Hello", e.store.ContactMessages()[0].Message)
}
