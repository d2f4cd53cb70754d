// Package memory implements the store repositories over in-process maps. It
// backs the auth, middleware and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/store"
)

// Store keeps every collection behind one mutex, mirroring Mongo's
// per-document atomicity closely enough for tests.
type Store struct {
	mu            sync.Mutex
	users         map[primitive.ObjectID]*models.User
	products      map[primitive.ObjectID]models.Product
	categories    map[primitive.ObjectID]models.Category
	orders        map[primitive.ObjectID]models.Order
	subscriptions map[string]time.Time
	contacts      []models.ContactMessage
}

func New() *Store {
	return &Store{
		users:         map[primitive.ObjectID]*models.User{},
		products:      map[primitive.ObjectID]models.Product{},
		categories:    map[primitive.ObjectID]models.Category{},
		orders:        map[primitive.ObjectID]models.Order{},
		subscriptions: map[string]time.Time{},
	}
}

func (s *Store) Users() store.UserRepository                 { return userRepo{s} }
func (s *Store) Cart() store.CartRepository                  { return cartRepo{s} }
func (s *Store) Wishlist() store.WishlistRepository          { return wishlistRepo{s} }
func (s *Store) Products() store.ProductRepository           { return productRepo{s} }
func (s *Store) Categories() store.CategoryRepository        { return categoryRepo{s} }
func (s *Store) Orders() store.OrderRepository               { return orderRepo{s} }
func (s *Store) Subscriptions() store.SubscriptionRepository { return subscriptionRepo{s} }
func (s *Store) Contacts() store.ContactRepository           { return contactRepo{s} }

// Subscribed reports whether email was stored by the subscription repository.
func (s *Store) Subscribed(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscriptions[email]
	return ok
}

// ContactMessages returns a copy of the stored contact messages.
func (s *Store) ContactMessages() []models.ContactMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ContactMessage(nil), s.contacts...)
}

// cloneUser deep-copies the slices so callers never alias stored state.
func cloneUser(u *models.User) *models.User {
	c := *u
	c.Credentials = append([]models.Credential(nil), u.Credentials...)
	c.Sessions = append([]models.Session{}, u.Sessions...)
	c.Cart = append([]models.CartItem{}, u.Cart...)
	c.Wishlist = append([]models.WishlistItem{}, u.Wishlist...)
	if u.OTPExpires != nil {
		t := *u.OTPExpires
		c.OTPExpires = &t
	}
	if u.ResetPasswordExpires != nil {
		t := *u.ResetPasswordExpires
		c.ResetPasswordExpires = &t
	}
	return &c
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return store.ErrDuplicate
		}
		if user.Phone != "" && existing.Phone == user.Phone {
			return store.ErrDuplicate
		}
	}

	now := time.Now()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r userRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (r userRepo) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (r userRepo) update(id primitive.ObjectID, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (r userRepo) SetOTP(_ context.Context, id primitive.ObjectID, code string, expires time.Time) error {
	return r.update(id, func(u *models.User) {
		u.OTP = code
		u.OTPExpires = &expires
		u.OTPAttempts = 0
	})
}

func (r userRepo) ConsumeOTP(_ context.Context, id primitive.ObjectID, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || u.IsVerified || u.OTP == "" || u.OTP != code {
		return false, nil
	}
	u.IsVerified = true
	u.OTP = ""
	u.OTPExpires = nil
	u.OTPAttempts = 0
	u.UpdatedAt = time.Now()
	return true, nil
}

func (r userRepo) RecordOTPFailure(_ context.Context, id primitive.ObjectID, max int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return false, store.ErrNotFound
	}
	u.OTPAttempts++
	u.UpdatedAt = time.Now()
	if u.OTPAttempts < max {
		return false, nil
	}
	u.OTP = ""
	u.OTPExpires = nil
	u.OTPAttempts = 0
	return true, nil
}

func (r userRepo) PushSession(_ context.Context, id primitive.ObjectID, session models.Session, max int) error {
	return r.update(id, func(u *models.User) {
		sessions := append(u.Sessions, session)
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		})
		if len(sessions) > max {
			sessions = sessions[len(sessions)-max:]
		}
		u.Sessions = append([]models.Session{}, sessions...)
	})
}

func (r userRepo) RemoveSession(_ context.Context, id primitive.ObjectID, sessionID string) error {
	return r.update(id, func(u *models.User) {
		kept := u.Sessions[:0]
		for _, s := range u.Sessions {
			if s.SessionID != sessionID {
				kept = append(kept, s)
			}
		}
		u.Sessions = kept
	})
}

func (r userRepo) AddCredential(_ context.Context, id primitive.ObjectID, cred models.Credential) error {
	return r.update(id, func(u *models.User) {
		u.Credentials = append(u.Credentials, cred)
	})
}

func (r userRepo) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	return r.update(id, func(u *models.User) {
		for i := range u.Credentials {
			if u.Credentials[i].Kind == models.CredentialPassword {
				u.Credentials[i].PasswordHash = hash
				return
			}
		}
		u.Credentials = append(u.Credentials, models.PasswordCredential(hash))
	})
}

func (r userRepo) SetResetToken(_ context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	return r.update(id, func(u *models.User) {
		u.ResetPasswordToken = tokenHash
		u.ResetPasswordExpires = &expires
	})
}

func (r userRepo) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.ResetPasswordToken == tokenHash && u.ResetPasswordExpires != nil && u.ResetPasswordExpires.After(now) {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (r userRepo) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	return r.update(id, func(u *models.User) {
		u.ResetPasswordToken = ""
		u.ResetPasswordExpires = nil
	})
}

type cartRepo struct{ s *Store }

func (r cartRepo) Get(_ context.Context, userID primitive.ObjectID) ([]models.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]models.CartItem{}, u.Cart...), nil
}

func (r cartRepo) Add(ctx context.Context, userID primitive.ObjectID, item models.ProductSnapshot) ([]models.CartItem, error) {
	err := userRepo(r).update(userID, func(u *models.User) {
		for i := range u.Cart {
			if u.Cart[i].ProductID == item.ProductID {
				u.Cart[i].Quantity++
				return
			}
		}
		u.Cart = append(u.Cart, models.CartItem{ProductSnapshot: item, Quantity: 1})
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, userID)
}

func (r cartRepo) Remove(ctx context.Context, userID primitive.ObjectID, productID string) ([]models.CartItem, error) {
	err := userRepo(r).update(userID, func(u *models.User) {
		kept := make([]models.CartItem, 0, len(u.Cart))
		for _, item := range u.Cart {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		u.Cart = kept
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, userID)
}

func (r cartRepo) SetQuantity(ctx context.Context, userID primitive.ObjectID, productID string, quantity int) ([]models.CartItem, error) {
	found := false
	err := userRepo(r).update(userID, func(u *models.User) {
		for i := range u.Cart {
			if u.Cart[i].ProductID == productID {
				u.Cart[i].Quantity = quantity
				found = true
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, store.ErrItemNotFound
	}
	return r.Get(ctx, userID)
}

func (r cartRepo) Clear(_ context.Context, userID primitive.ObjectID) error {
	return userRepo(r).update(userID, func(u *models.User) {
		u.Cart = []models.CartItem{}
	})
}

type wishlistRepo struct{ s *Store }

func (r wishlistRepo) Get(_ context.Context, userID primitive.ObjectID) ([]models.WishlistItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]models.WishlistItem{}, u.Wishlist...), nil
}

func (r wishlistRepo) Add(_ context.Context, userID primitive.ObjectID, item models.ProductSnapshot) error {
	duplicate := false
	err := userRepo(r).update(userID, func(u *models.User) {
		for _, existing := range u.Wishlist {
			if existing.ProductID == item.ProductID {
				duplicate = true
				return
			}
		}
		u.Wishlist = append(u.Wishlist, models.WishlistItem{ProductSnapshot: item})
	})
	if err != nil {
		return err
	}
	if duplicate {
		return store.ErrAlreadyPresent
	}
	return nil
}

func (r wishlistRepo) Remove(_ context.Context, userID primitive.ObjectID, productID string) error {
	return userRepo(r).update(userID, func(u *models.User) {
		kept := make([]models.WishlistItem, 0, len(u.Wishlist))
		for _, item := range u.Wishlist {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		u.Wishlist = kept
	})
}

func (r wishlistRepo) Contains(ctx context.Context, userID primitive.ObjectID, productID string) (bool, error) {
	items, err := r.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

type productRepo struct{ s *Store }

func matchesProduct(p models.Product, f store.ProductFilter) bool {
	if f.Category != "" {
		found := false
		for _, c := range p.CategoryID {
			if c == f.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	if f.MinPrice > 0 && p.OriginalPrice < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.OriginalPrice > f.MaxPrice {
		return false
	}
	return true
}

func (r productRepo) List(_ context.Context, f store.ProductFilter) ([]models.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := make([]models.Product, 0)
	for _, p := range r.s.products {
		if matchesProduct(p, f) {
			p.Normalize()
			matched = append(matched, p)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		less := lessByField(matched[i], matched[j], f.SortBy)
		if f.SortDesc {
			return lessByField(matched[j], matched[i], f.SortBy)
		}
		return less
	})

	total := int64(len(matched))
	if f.Page > 0 && f.Limit > 0 {
		if total == 0 || f.Page-1 > (total-1)/f.Limit {
			return []models.Product{}, total, nil
		}
		start := (f.Page - 1) * f.Limit
		end := total
		if f.Limit < total-start {
			end = start + f.Limit
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func lessByField(a, b models.Product, field string) bool {
	switch field {
	case "originalPrice":
		return a.OriginalPrice < b.OriginalPrice
	case "discountedPrice":
		return a.DiscountedPrice < b.DiscountedPrice
	case "reviews":
		return a.Reviews < b.Reviews
	case "discountPercentage":
		return a.DiscountPercentage < b.DiscountPercentage
	default:
		if a.Name == b.Name {
			return a.ID.Hex() < b.ID.Hex()
		}
		return a.Name < b.Name
	}
}

func (r productRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Normalize()
	return &p, nil
}

func (r productRepo) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			p.Normalize()
			out = append(out, p)
		}
	}
	return out, nil
}

func (r productRepo) Create(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	product.Normalize()
	r.s.products[product.ID] = *product
	return nil
}

func (r productRepo) Update(_ context.Context, id primitive.ObjectID, fields map[string]interface{}) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for key, val := range fields {
		switch key {
		case "name":
			p.Name, _ = val.(string)
		case "description":
			p.Description, _ = val.(string)
		case "image":
			p.Image, _ = val.(string)
		case "originalPrice":
			p.OriginalPrice, _ = val.(float64)
		case "discountedPrice":
			p.DiscountedPrice, _ = val.(float64)
		case "discountPercentage":
			p.DiscountPercentage, _ = val.(float64)
		case "reviews":
			p.Reviews, _ = val.(int)
		case "categoryid":
			if list, ok := val.(models.StringList); ok {
				p.CategoryID = list
			}
		}
	}
	p.Normalize()
	r.s.products[id] = p
	return &p, nil
}

func (r productRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

type categoryRepo struct{ s *Store }

func (r categoryRepo) List(_ context.Context) ([]models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r categoryRepo) Create(_ context.Context, category *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.categories {
		if c.Name == category.Name {
			return store.ErrDuplicate
		}
	}
	category.ID = primitive.NewObjectID()
	r.s.categories[category.ID] = *category
	return nil
}

func (r categoryRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.categories, id)
	return nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) PlaceFromCart(_ context.Context, userID primitive.ObjectID, billing models.Billing, paymentMethod string) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}

	catalog := make(map[string]models.Product, len(r.s.products))
	for id, p := range r.s.products {
		catalog[id.Hex()] = p
	}

	items, total, err := store.PriceCart(u.Cart, catalog)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Billing:       billing,
		Products:      items,
		TotalPrice:    total,
		PaymentMethod: paymentMethod,
		Status:        models.OrderStatusPending,
		CreatedAt:     time.Now(),
	}
	r.s.orders[order.ID] = order
	u.Cart = []models.CartItem{}
	return &order, nil
}

func (r orderRepo) filter(keep func(models.Order) bool) []models.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Order, 0)
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r orderRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.filter(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (r orderRepo) ListAll(_ context.Context) ([]models.Order, error) {
	return r.filter(func(models.Order) bool { return true }), nil
}

func (r orderRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.orders, id)
	return nil
}

type subscriptionRepo struct{ s *Store }

func (r subscriptionRepo) Subscribe(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.subscriptions[email]; !ok {
		r.s.subscriptions[email] = time.Now()
	}
	return nil
}

type contactRepo struct{ s *Store }

func (r contactRepo) Create(_ context.Context, msg *models.ContactMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = time.Now()
	r.s.contacts = append(r.s.contacts, *msg)
	return nil
}
