package services

import (
	"testing"

	"go-erp-backend/internal/apperror"

	"github.com/stretchr/testify/require"
)

func TestSupplierCRUD(t *testing.T) {
	f := newFixture(t)

	created := f.supplier(t, "Acme")
	require.NotZero(t, created.ID)

	updated, err := f.suppliers.Update(f.ctx, created.ID, SupplierInput{Name: "Acme Ltd", Address: "2 High St", PhoneNumber: "555-0199"})
	require.NoError(t, err)
	require.Equal(t, "Acme Ltd", updated.Name)

	got, err := f.suppliers.Get(f.ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "2 High St", got.Address)

	_, err = f.suppliers.Update(f.ctx, 999, SupplierInput{Name: "x"})
	require.ErrorIs(t, err, apperror.ErrSupplierNotFound)

	list, err := f.suppliers.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.suppliers.Delete(f.ctx, created.ID))
	_, err = f.suppliers.Get(f.ctx, created.ID)
	require.ErrorIs(t, err, apperror.ErrSupplierNotFound)
	require.ErrorIs(t, f.suppliers.Delete(f.ctx, created.ID), apperror.ErrSupplierNotFound)
}

func TestDeleteSupplierInUse(t *testing.T) {
	f := newFixture(t)
	s := f.supplier(t, "Acme")
	f.product(t, s.ID, "A", 1, "1", "1")

	require.ErrorIs(t, f.suppliers.Delete(f.ctx, s.ID), apperror.ErrConflict)
}
