package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ternarybob/tempo/internal/codec"
	"github.com/ternarybob/tempo/internal/models"
)

// StoreCalendar stores the serialized calendar under its name. With
// replace true an existing calendar of the same name is overwritten,
// otherwise the store fails on a duplicate. Retroactively updating
// triggers that reference the calendar is not supported.
func (s *Store) StoreCalendar(ctx context.Context, name string, cal models.Calendar, replace, updateTriggers bool) error {
	if updateTriggers {
		return fmt.Errorf("updating triggers on calendar store: %w", models.ErrUnsupported)
	}

	doc, err := codec.EncodeCalendar(name, cal, s.serializer)
	if err != nil {
		return err
	}

	nameFilter := bson.M{models.FieldName: name}
	if replace {
		_, err = s.calendarCollection.ReplaceOne(ctx, nameFilter, doc,
			options.Replace().SetUpsert(true))
		if err != nil {
			return models.WrapStorage("replace calendar "+name, err)
		}
		return nil
	}

	n, err := s.calendarCollection.CountDocuments(ctx, nameFilter)
	if err != nil {
		return models.WrapStorage("check calendar "+name, err)
	}
	if n > 0 {
		return fmt.Errorf("calendar %q: %w", name, models.ErrAlreadyExists)
	}
	if _, err := s.calendarCollection.InsertOne(ctx, doc); err != nil {
		return models.WrapStorage("insert calendar "+name, err)
	}
	return nil
}

// RemoveCalendar deletes the calendar and reports whether one existed.
func (s *Store) RemoveCalendar(ctx context.Context, name string) (bool, error) {
	result, err := s.calendarCollection.DeleteMany(ctx, bson.M{models.FieldName: name})
	if err != nil {
		return false, models.WrapStorage("delete calendar "+name, err)
	}
	return result.DeletedCount > 0, nil
}

// RetrieveCalendar is not supported: the stored blob cannot be turned
// back into a live calendar without knowledge of its concrete type.
func (s *Store) RetrieveCalendar(ctx context.Context, name string) (models.Calendar, error) {
	return nil, fmt.Errorf("retrieve calendar %q: %w", name, models.ErrUnsupported)
}

// GetCalendarNames is not supported.
func (s *Store) GetCalendarNames(ctx context.Context) ([]string, error) {
	return nil, fmt.Errorf("list calendar names: %w", models.ErrUnsupported)
}
