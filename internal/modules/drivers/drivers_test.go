package drivers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-tracking/internal/models"
)

type stubRepo struct {
	created *models.Driver
	byID    map[string]*models.Driver
	listed  models.DriverStatus
}

func (s *stubRepo) Create(_ context.Context, d *models.Driver) error {
	s.created = d
	return nil
}

func (s *stubRepo) FindByID(_ context.Context, id string) (*models.Driver, error) {
	d, ok := s.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return d, nil
}

func (s *stubRepo) List(_ context.Context, status models.DriverStatus) ([]*models.Driver, error) {
	s.listed = status
	return nil, nil
}

func (s *stubRepo) UpdateStatus(context.Context, string, models.DriverStatus) error {
	return nil
}

func TestService_Register_DefaultsToAvailable(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	svc := NewService(repo)

	d, err := svc.Register(context.Background(), models.CreateDriverRequest{
		Name:    "Nimal Perera",
		Contact: "+94 77 123 4567",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, models.DriverAvailable, d.Status)
	require.NotNil(t, d.Contact)
	assert.Equal(t, "+94 77 123 4567", *d.Contact)
	assert.Nil(t, d.Email)
	assert.Same(t, d, repo.created)
}

func TestService_Register_JSONShape(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	svc := NewService(repo)

	d, err := svc.Register(context.Background(), models.CreateDriverRequest{
		Name:    "Nimal Perera",
		Contact: "+94 77 123 4567",
	})
	require.NoError(t, err)

	body, err := json.Marshal(d)
	require.NoError(t, err)

	// Optional fields serialize as plain strings, and an absent one is
	// omitted rather than rendered as a null or wrapper object.
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "+94 77 123 4567", decoded["contact"])
	assert.NotContains(t, decoded, "email")
}

func TestService_Get_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(&stubRepo{byID: map[string]*models.Driver{}})
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_List_ValidatesStatusFilter(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	svc := NewService(repo)

	_, err := svc.List(context.Background(), "available")
	require.NoError(t, err)
	assert.Equal(t, models.DriverAvailable, repo.listed)

	_, err = svc.List(context.Background(), "")
	require.NoError(t, err)

	_, err = svc.List(context.Background(), "sleeping")
	assert.ErrorIs(t, err, models.ErrUnknownStatus)
}
