package service

import (
	"testing"

	"smartdecor/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCartService(repository.NewCartRepository(db), repository.NewProductRepository(db))
	lamp := seedProduct(t, db, "Lamp", 4)

	_, err := svc.Get(7)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AddItem(7, lamp.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Create(7)
	require.NoError(t, err)
	_, err = svc.Create(7)
	assert.ErrorIs(t, err, ErrCartExists)

	c, err := svc.AddItem(7, lamp.ID, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, "Lamp", c.Items[0].Product.Name)

	c, err = svc.AddItem(7, lamp.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Items[0].Quantity)

	c, err = svc.SetItem(7, lamp.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[0].Quantity)

	_, err = svc.AddItem(7, lamp.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.AddItem(7, 999, 1)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	c, err = svc.RemoveItem(7, lamp.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	_, err = svc.RemoveItem(7, lamp.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SetItem(7, lamp.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(7))
	assert.ErrorIs(t, svc.Delete(7), ErrNotFound)
}
