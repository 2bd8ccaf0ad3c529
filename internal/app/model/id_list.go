package model

import (
	"database/sql/driver"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// IDList is a set of entity ids stored as a postgres bigint[] (text with the same encoding on sqlite).
type IDList []uint

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	arr := make(pq.Int64Array, len(l))
	for i, id := range l {
		arr[i] = int64(id)
	}
	return arr.Value()
}

func (l *IDList) Scan(src interface{}) error {
	var arr pq.Int64Array
	if err := arr.Scan(src); err != nil {
		return err
	}
	if arr == nil {
		*l = nil
		return nil
	}
	out := make(IDList, len(arr))
	for i, id := range arr {
		out[i] = uint(id)
	}
	*l = out
	return nil
}

func (IDList) GormDataType() string {
	return "idlist"
}

func (IDList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "bigint[]"
	}
	return "text"
}

// Contains reports whether id is in the list.
func (l IDList) Contains(id uint) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Intersects reports whether any of ids is in the list.
func (l IDList) Intersects(ids []uint) bool {
	for _, id := range ids {
		if l.Contains(id) {
			return true
		}
	}
	return false
}
