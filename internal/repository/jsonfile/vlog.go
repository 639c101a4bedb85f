package jsonfile

import (
	"context"
	"slices"

	"github.com/rs/xid"

	"github.com/sakif/vlogsite/internal/apperror"
	"github.com/sakif/vlogsite/internal/model"
)

// CreateVlog appends a vlog, generating an xid when ID is empty.
func (s *Store) CreateVlog(ctx context.Context, vlog *model.Vlog) error {
	return s.update(ctx, func(doc *document) (bool, error) {
		if vlog.ID == "" {
			vlog.ID = xid.New().String()
		}
		if indexOfVlog(doc, vlog.ID) >= 0 {
			return false, apperror.Conflict("vlog", vlog.ID)
		}

		doc.Vlogs = append(doc.Vlogs, *vlog)
		return true, nil
	})
}

func (s *Store) GetVlog(ctx context.Context, id string) (*model.Vlog, error) {
	var found model.Vlog
	err := s.view(ctx, func(doc *document) error {
		idx := indexOfVlog(doc, id)
		if idx < 0 {
			return apperror.NotFound("vlog", id)
		}
		found = doc.Vlogs[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// ListVlogs returns every vlog in the order they were created.
func (s *Store) ListVlogs(ctx context.Context) ([]model.Vlog, error) {
	var vlogs []model.Vlog
	err := s.view(ctx, func(doc *document) error {
		vlogs = slices.Clone(doc.Vlogs)
		return nil
	})
	return vlogs, err
}

func (s *Store) UpdateVlog(ctx context.Context, vlog *model.Vlog) error {
	return s.update(ctx, func(doc *document) (bool, error) {
		idx := indexOfVlog(doc, vlog.ID)
		if idx < 0 {
			return false, apperror.NotFound("vlog", vlog.ID)
		}
		doc.Vlogs[idx] = *vlog
		return true, nil
	})
}

// DeleteVlog removes a vlog, keeping the remaining ones in order.
func (s *Store) DeleteVlog(ctx context.Context, id string) error {
	return s.update(ctx, func(doc *document) (bool, error) {
		idx := indexOfVlog(doc, id)
		if idx < 0 {
			return false, apperror.NotFound("vlog", id)
		}
		doc.Vlogs = slices.Delete(doc.Vlogs, idx, idx+1)
		return true, nil
	})
}

func indexOfVlog(doc *document, id string) int {
	return slices.IndexFunc(doc.Vlogs, func(v model.Vlog) bool { return v.ID == id })
}
