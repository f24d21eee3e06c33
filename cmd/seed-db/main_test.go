package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/foodcourt/internal/domain/discount"
)

func TestLoadMenu_SeedFile(t *testing.T) {
	items, err := loadMenu(filepath.Join("..", "..", "db", "seed", "menu.json"))
	require.NoError(t, err)
	require.Len(t, items, 13)

	burger := items[0]
	assert.Equal(t, "classic-cheeseburger", burger.ID)
	assert.True(t, burger.Price.Equal(decimal.RequireFromString("12.99")))
	assert.True(t, burger.Available)
	require.Len(t, burger.Options, 2)
	assert.Equal(t, "classic-cheeseburger-1", burger.Options[0].ID)
	assert.True(t, burger.Options[0].Required)
	require.NotNil(t, burger.Options[1].MaxChoices)
	assert.Equal(t, 3, *burger.Options[1].MaxChoices)

	mushrooms, ok := burger.Options[1].Choice("Mushrooms")
	require.True(t, ok)
	assert.True(t, mushrooms.PriceDelta.Equal(decimal.RequireFromString("1.5")))

	categories := map[string]int{}
	for _, it := range items {
		categories[it.Category]++
	}
	assert.Equal(t, map[string]int{
		"Burgers": 3, "Pizza": 2, "Salads": 2, "Asian": 2, "Drinks": 2, "Desserts": 2,
	}, categories)
}

func TestLoadMenu_MissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"Nameless","price":1}]`), 0o600))

	_, err := loadMenu(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}

func TestSeedCodes(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	codes := seedCodes(now)
	require.Len(t, codes, 7)

	byCode := map[string]discount.Code{}
	for _, c := range codes {
		assert.Equal(t, discount.Normalize(c.Code), c.Code)
		assert.True(t, c.Type.Valid())
		byCode[c.Code] = c
	}

	require.NotNil(t, byCode["SUMMER25"].ExpiresAt)
	assert.True(t, byCode["SUMMER25"].ExpiresAt.Before(now))
	assert.False(t, byCode["OLDCODE"].Active)
	assert.Equal(t, *byCode["MAXEDOUT"].MaxUses, byCode["MAXEDOUT"].UsedCount)
	assert.True(t, byCode["SAVE10"].MinOrderValue.Equal(decimal.NewFromInt(20)))
}
