package model

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"

	"github.com/sakif/foodtracker/internal/apperror"
)

// Encode returns the keyed mapping persisted for this meal.
//
// The mapping is deterministic: "name" and "rating" are always present,
// "photo" only when the meal has one. Decode(m.Encode()) yields a meal
// Equal to m.
func (m *Meal) Encode() map[string]any {
	fields := map[string]any{
		KeyName:   m.name,
		KeyRating: m.rating,
	}
	if m.photo != nil {
		fields[KeyPhoto] = bytes.Clone(m.photo)
	}
	return fields
}

// Decode rebuilds a meal from its keyed mapping.
//
// DECODING RULES:
//   - "name" is required and must be a string → apperror.ErrDecode otherwise
//   - "rating" defaults to 0 when absent; when present it must be an integer
//     (any Go integer type, json.Number, or an integral float64 as produced
//     by encoding/json)
//   - "photo" is optional; []byte or a base64 string. Any other type is
//     treated as "no photo", the same way a missing key is
//
// The decoded values then go through NewMeal, so an out-of-range rating or
// an empty name comes back as apperror.ErrValidation.
func Decode(fields map[string]any) (*Meal, error) {
	name, ok := fields[KeyName].(string)
	if !ok {
		return nil, apperror.DecodeFailed(KeyName, "unable to decode the name for a meal")
	}

	rating := 0
	if raw, present := fields[KeyRating]; present {
		r, err := decodeInt(raw)
		if err != nil {
			return nil, apperror.DecodeFailed(KeyRating,
				fmt.Sprintf("unable to decode the rating for meal %q: %v", name, err))
		}
		rating = r
	}

	var photo []byte
	switch p := fields[KeyPhoto].(type) {
	case []byte:
		photo = p
	case string:
		b, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return nil, apperror.DecodeFailed(KeyPhoto,
				fmt.Sprintf("unable to decode the photo for meal %q: %v", name, err))
		}
		photo = b
	}

	return NewMeal(name, photo, rating)
}

func decodeInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		if v > math.MaxInt || v < math.MinInt {
			return 0, fmt.Errorf("%d overflows int", v)
		}
		return int(v), nil
	case uint:
		return fromUnsigned(uint64(v))
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return fromUnsigned(uint64(v))
	case uint64:
		return fromUnsigned(v)
	case uintptr:
		return fromUnsigned(uint64(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, err
		}
		return decodeInt(n)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		if v >= math.MaxInt || v < math.MinInt {
			return 0, fmt.Errorf("%v overflows int", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", raw)
	}
}

func fromUnsigned(v uint64) (int, error) {
	if v > math.MaxInt {
		return 0, fmt.Errorf("%d overflows int", v)
	}
	return int(v), nil
}

// MarshalJSON writes the keyed mapping. encoding/json renders the photo
// bytes as base64, which Decode accepts back.
func (m *Meal) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Encode())
}

// UnmarshalJSON reads the keyed mapping through Decode, so JSON input obeys
// exactly the same rules as any other archive.
func (m *Meal) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return apperror.DecodeFailed("", fmt.Sprintf("meal is not a JSON object: %v", err))
	}

	decoded, err := Decode(fields)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}
