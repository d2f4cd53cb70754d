package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStringListDecodesStringOrArray(t *testing.T) {
	tests := []struct {
		name string
		doc  bson.M
		want StringList
	}{
		{"array", bson.M{"categoryid": bson.A{"a", "b"}}, StringList{"a", "b"}},
		{"string", bson.M{"categoryid": " fruit "}, StringList{"fruit"}},
		{"blank string", bson.M{"categoryid": "  "}, StringList{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(tt.doc)
			require.NoError(t, err)

			var p Product
			require.NoError(t, bson.Unmarshal(raw, &p))
			assert.Equal(t, tt.want, p.CategoryID)
		})
	}
}

func TestStringListRejectsOtherTypes(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"categoryid": 42})
	require.NoError(t, err)

	var p Product
	assert.Error(t, bson.Unmarshal(raw, &p))
}

func TestPricing(t *testing.T) {
	assert.True(t, IsOnSale(100, 80))
	assert.False(t, IsOnSale(100, 0))
	assert.False(t, IsOnSale(100, 100))

	assert.Equal(t, 80.0, EffectivePrice(100, 80))
	assert.Equal(t, 100.0, EffectivePrice(100, 120))

	assert.Equal(t, 33.0, DiscountPercentage(30, 20))
	assert.Zero(t, DiscountPercentage(30, 0))
}

func TestUserCredentialHelpers(t *testing.T) {
	u := &User{
		Credentials: []Credential{
			PasswordCredential("hash"),
			ExternalCredential(ProviderGoogle, "g-1"),
		},
		Sessions: []Session{{SessionID: "s1"}},
	}

	hash, ok := u.PasswordHash()
	assert.True(t, ok)
	assert.Equal(t, "hash", hash)

	id, ok := u.ExternalID(ProviderGoogle)
	assert.True(t, ok)
	assert.Equal(t, "g-1", id)

	_, ok = (&User{}).PasswordHash()
	assert.False(t, ok)

	assert.True(t, u.HasSession("s1"))
	assert.False(t, u.HasSession("s2"))
}
