// Package api holds the JSON wire representation of the catalog, shared by
// the HTTP handlers and the catalog client.
package api

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// InvalidFieldError reports a request field that is present but unusable.
type InvalidFieldError struct {
	Field string
}

func (e *InvalidFieldError) Error() string {
	return "invalid " + e.Field
}

// EncodeProduct writes p as a JSON object.
func EncodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { e.Num(jx.Num(p.Price.String())) })
		e.Field("image", func(e *jx.Encoder) { e.Str(p.Image) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		if !p.CreatedAt.IsZero() {
			e.Field("created_at", func(e *jx.Encoder) { e.Str(p.CreatedAt.UTC().Format(time.RFC3339Nano)) })
		}
	})
}

// EncodeProducts writes products as a JSON array.
func EncodeProducts(e *jx.Encoder, products []product.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			EncodeProduct(e, p)
		}
	})
}

// DecodeProducts parses a JSON array of products.
func DecodeProducts(data []byte) ([]product.Product, error) {
	products := []product.Product{}
	if err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decodeID(d)
		case "name":
			p.Name, err = decodeString(d)
		case "price":
			var price *decimal.Decimal
			if price, err = decodePrice(d); err == nil && price != nil {
				p.Price = *price
			}
		case "image":
			p.Image, err = decodeString(d)
		case "category":
			p.Category, err = decodeString(d)
		case "created_at":
			var s string
			if s, err = decodeString(d); err == nil && s != "" {
				p.CreatedAt, err = time.Parse(time.RFC3339Nano, s)
			}
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}

// DecodeDraft parses a create-product request body. Absent and null fields
// are left empty for Draft.Validate to report; a price that is present but
// not numeric yields an *InvalidFieldError.
func DecodeDraft(data []byte) (product.Draft, error) {
	var draft product.Draft
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			draft.Name, err = decodeString(d)
		case "price":
			draft.Price, err = decodePrice(d)
		case "image":
			draft.Image, err = decodeString(d)
		case "category":
			draft.Category, err = decodeString(d)
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return product.Draft{}, err
	}
	return draft, nil
}

// DecodeDeleteID extracts "id" from a delete request body. It returns ""
// when the body carries no id.
func DecodeDeleteID(data []byte) (string, error) {
	var id string
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "id" {
			return d.Skip()
		}
		switch d.Next() {
		case jx.Number:
			n, err := d.Num()
			if err != nil {
				return err
			}
			id = n.String()
			return nil
		case jx.String:
			s, err := d.Str()
			id = strings.TrimSpace(s)
			return err
		case jx.Null:
			return d.Null()
		default:
			return &InvalidFieldError{Field: "id"}
		}
	})
	return id, err
}

// decodeString reads a string, treating null as empty. Other types are
// rejected.
func decodeString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Null:
		return "", d.Null()
	default:
		return "", errors.Errorf("expected string, got %s", d.Next())
	}
}

// decodePrice reads a price given as a JSON number or a numeric string.
// Null and the empty string mean absent.
func decodePrice(d *jx.Decoder) (*decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil, nil
		}
	case jx.Null:
		return nil, d.Null()
	default:
		if err := d.Skip(); err != nil {
			return nil, err
		}
		return nil, &InvalidFieldError{Field: "price"}
	}

	price, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &InvalidFieldError{Field: "price"}
	}
	return &price, nil
}

func decodeID(d *jx.Decoder) (int64, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return jx.DecodeStr(s).Int64()
	}
	return d.Int64()
}
