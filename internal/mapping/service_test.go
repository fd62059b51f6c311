package mapping_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/mapping"
)

var validColumns = importer.ColumnMap{
	importer.FieldDate:     "Date",
	importer.FieldMerchant: "Desc",
	importer.FieldAmount:   "Amount",
}

func TestService_Save(t *testing.T) {
	owner := uuid.New()

	type testCase struct {
		name          string
		params        mapping.SaveParams
		setupMock     func(m *mapping.MockRepository)
		wantErr       error
		wantNotMapped importer.Field
	}

	tests := []testCase{
		{
			name:   "Success",
			params: mapping.SaveParams{Name: "My bank", DateFormat: "dd/MM/yyyy", Columns: validColumns},
			setupMock: func(m *mapping.MockRepository) {
				m.EXPECT().
					CreateMapping(gomock.Any(), owner, gomock.Any()).
					Return(&mapping.Mapping{ID: uuid.New(), OwnerID: owner, Name: "My bank", Columns: validColumns}, nil)
			},
		},
		{
			name:      "EmptyName",
			params:    mapping.SaveParams{Name: "  ", Columns: validColumns},
			setupMock: func(m *mapping.MockRepository) {},
			wantErr:   mapping.ErrInvalidName,
		},
		{
			name:      "UnknownField",
			params:    mapping.SaveParams{Name: "x", Columns: importer.ColumnMap{"category": "Cat", importer.FieldDate: "D", importer.FieldMerchant: "M", importer.FieldAmount: "A"}},
			setupMock: func(m *mapping.MockRepository) {},
			wantErr:   mapping.ErrInvalidField,
		},
		{
			name:          "MissingAmount",
			params:        mapping.SaveParams{Name: "x", Columns: importer.ColumnMap{importer.FieldDate: "D", importer.FieldMerchant: "M"}},
			setupMock:     func(m *mapping.MockRepository) {},
			wantNotMapped: importer.FieldAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := mapping.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := mapping.NewService(repo)
			got, err := svc.Save(context.Background(), owner, tt.params)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantNotMapped != "":
				var notMapped *importer.ColumnNotMappedError
				require.True(t, errors.As(err, &notMapped))
				assert.Equal(t, tt.wantNotMapped, notMapped.Field)
			default:
				require.NoError(t, err)
				assert.Equal(t, "My bank", got.Name)
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	owner, id := uuid.New(), uuid.New()
	stored := &mapping.Mapping{ID: id, OwnerID: owner, Name: "Old", Columns: validColumns}

	t.Run("PartialRename", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mapping.NewMockRepository(ctrl)
		name := "New"
		params := mapping.UpdateParams{Name: &name}

		repo.EXPECT().GetMapping(gomock.Any(), owner, id).Return(stored, nil)
		repo.EXPECT().UpdateMapping(gomock.Any(), owner, id, params).
			Return(&mapping.Mapping{ID: id, OwnerID: owner, Name: name, Columns: validColumns}, nil)

		got, err := mapping.NewService(repo).Update(context.Background(), owner, id, params)
		require.NoError(t, err)
		assert.Equal(t, "New", got.Name)
		assert.Equal(t, validColumns, got.Columns)
	})

	t.Run("InvalidColumns", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mapping.NewMockRepository(ctrl)
		repo.EXPECT().GetMapping(gomock.Any(), owner, id).Return(stored, nil)

		_, err := mapping.NewService(repo).Update(context.Background(), owner, id, mapping.UpdateParams{
			Columns: importer.ColumnMap{importer.FieldDate: "Date"},
		})
		assert.ErrorContains(t, err, "Merchant column not mapped")
	})

	t.Run("NotFound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mapping.NewMockRepository(ctrl)
		repo.EXPECT().GetMapping(gomock.Any(), owner, id).Return(nil, mapping.ErrNotFound)

		_, err := mapping.NewService(repo).Update(context.Background(), owner, id, mapping.UpdateParams{})
		assert.ErrorIs(t, err, mapping.ErrNotFound)
	})
}

func TestService_ListGetDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	owner, id := uuid.New(), uuid.New()
	repo := mapping.NewMockRepository(ctrl)
	svc := mapping.NewService(repo)

	repo.EXPECT().ListMappings(gomock.Any(), owner).Return([]*mapping.Mapping{{ID: id}}, nil)
	repo.EXPECT().GetMapping(gomock.Any(), owner, id).Return(&mapping.Mapping{ID: id}, nil)
	repo.EXPECT().DeleteMapping(gomock.Any(), owner, id).Return(mapping.ErrNotFound)

	list, err := svc.List(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := svc.Get(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	assert.ErrorIs(t, svc.Delete(context.Background(), owner, id), mapping.ErrNotFound)
}

func TestMapping_Config(t *testing.T) {
	m := &mapping.Mapping{ID: uuid.New(), DateFormat: "dd/MM/yyyy", Columns: validColumns}

	cfg := m.Config()
	assert.Equal(t, "mapping:"+m.ID.String(), cfg.Source)
	assert.Equal(t, "dd/MM/yyyy", cfg.DateFormat)
	assert.Equal(t, validColumns, cfg.Columns)
	assert.Empty(t, cfg.BankID)
}
