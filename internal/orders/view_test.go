package orders

import (
	"context"
	"testing"

	"marketplace/internal/domain"
	"marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewBuilder(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	v := NewViewBuilder(gdb)

	testutil.SeedProduct(t, gdb, "p1", seller, "5", 10)
	testutil.SeedProduct(t, gdb, "p2", seller, "7", 10)
	testutil.SeedProduct(t, gdb, "p3", "other@x.com", "9", 10)

	first := testutil.SeedOrder(t, gdb, "p1", customer, seller, 1, domain.OrderPending)
	orphan := testutil.SeedOrder(t, gdb, "p2", customer, seller, 2, domain.OrderInProgress)
	last := testutil.SeedOrder(t, gdb, "p3", customer, "other@x.com", 3, domain.OrderPending)
	testutil.SeedOrder(t, gdb, "p1", "someone@x.com", seller, 1, domain.OrderPending)

	require.NoError(t, gdb.Delete(&domain.Product{}, "id = ?", "p2").Error)

	t.Run("customer rows skip deleted products", func(t *testing.T) {
		rows, err := v.ForCustomer(ctx, customer)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, first.ID, rows[0].ID)
		assert.Equal(t, "Monstera p1", rows[0].Name)
		assert.Equal(t, "Indoor", rows[0].Category)
		assert.Equal(t, "https://img.example/p1.jpg", rows[0].Image)
		assert.Equal(t, customer, rows[0].Customer.Email)
		assert.Equal(t, last.ID, rows[1].ID)
		for _, r := range rows {
			assert.NotEqual(t, orphan.ID, r.ID)
		}
	})

	t.Run("seller rows", func(t *testing.T) {
		rows, err := v.ForSeller(ctx, seller)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, r := range rows {
			assert.Equal(t, seller, r.Seller)
			assert.Equal(t, "p1", r.ProductID)
		}
	})

	t.Run("unknown email is empty, not nil", func(t *testing.T) {
		rows, err := v.ForCustomer(ctx, "nobody@x.com")
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})
}
