package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Category groups products.  Name is unique per user.
type Category struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Attribute is a variant dimension such as "Size" with its allowed values.
// Variants refer to it by name only.
type Attribute struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	Metrics   Metrics   `db:"metrics" json:"metrics"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Metrics is stored as a JSON array column.
type Metrics []string

func (m Metrics) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(m))
	return string(b), err
}

func (m *Metrics) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = Metrics{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("metrics: unsupported column type")
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
