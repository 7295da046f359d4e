// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Update holds the fields decoded from one frame. Fields the frame did not
// carry are nil. Field names in tags match the device's register naming.
type Update struct {
	InputVoltage  *float32 `json:"inputVoltage,omitempty" yaml:"inputVoltage,omitempty"`
	SetVoltage    *float32 `json:"setVoltage,omitempty" yaml:"setVoltage,omitempty"`
	SetCurrent    *float32 `json:"setCurrent,omitempty" yaml:"setCurrent,omitempty"`
	OutputVoltage *float32 `json:"outputVoltage,omitempty" yaml:"outputVoltage,omitempty"`
	OutputCurrent *float32 `json:"outputCurrent,omitempty" yaml:"outputCurrent,omitempty"`
	OutputPower   *float32 `json:"outputPower,omitempty" yaml:"outputPower,omitempty"`
	Temperature   *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	Group1SetVoltage *float32 `json:"group1setVoltage,omitempty" yaml:"group1setVoltage,omitempty"`
	Group1SetCurrent *float32 `json:"group1setCurrent,omitempty" yaml:"group1setCurrent,omitempty"`
	Group2SetVoltage *float32 `json:"group2setVoltage,omitempty" yaml:"group2setVoltage,omitempty"`
	Group2SetCurrent *float32 `json:"group2setCurrent,omitempty" yaml:"group2setCurrent,omitempty"`
	Group3SetVoltage *float32 `json:"group3setVoltage,omitempty" yaml:"group3setVoltage,omitempty"`
	Group3SetCurrent *float32 `json:"group3setCurrent,omitempty" yaml:"group3setCurrent,omitempty"`
	Group4SetVoltage *float32 `json:"group4setVoltage,omitempty" yaml:"group4setVoltage,omitempty"`
	Group4SetCurrent *float32 `json:"group4setCurrent,omitempty" yaml:"group4setCurrent,omitempty"`
	Group5SetVoltage *float32 `json:"group5setVoltage,omitempty" yaml:"group5setVoltage,omitempty"`
	Group5SetCurrent *float32 `json:"group5setCurrent,omitempty" yaml:"group5setCurrent,omitempty"`
	Group6SetVoltage *float32 `json:"group6setVoltage,omitempty" yaml:"group6setVoltage,omitempty"`
	Group6SetCurrent *float32 `json:"group6setCurrent,omitempty" yaml:"group6setCurrent,omitempty"`

	OverVoltageProtection     *float32 `json:"overVoltageProtection,omitempty" yaml:"overVoltageProtection,omitempty"`
	OverCurrentProtection     *float32 `json:"overCurrentProtection,omitempty" yaml:"overCurrentProtection,omitempty"`
	OverPowerProtection       *float32 `json:"overPowerProtection,omitempty" yaml:"overPowerProtection,omitempty"`
	OverTemperatureProtection *float32 `json:"overTemperatureProtection,omitempty" yaml:"overTemperatureProtection,omitempty"`
	LowVoltageProtection      *float32 `json:"lowVoltageProtection,omitempty" yaml:"lowVoltageProtection,omitempty"`

	Brightness     *int  `json:"brightness,omitempty" yaml:"brightness,omitempty"`
	Volume         *int  `json:"volume,omitempty" yaml:"volume,omitempty"`
	MeteringClosed *bool `json:"meteringClosed,omitempty" yaml:"meteringClosed,omitempty"`

	OutputCapacity  *float32 `json:"outputCapacity,omitempty" yaml:"outputCapacity,omitempty"` // Ah
	OutputEnergy    *float32 `json:"outputEnergy,omitempty" yaml:"outputEnergy,omitempty"`     // Wh
	OutputClosed    *bool    `json:"outputClosed,omitempty" yaml:"outputClosed,omitempty"`
	ProtectionState *string  `json:"protectionState,omitempty" yaml:"protectionState,omitempty"`
	Mode            *string  `json:"mode,omitempty" yaml:"mode,omitempty"`

	ModelName       *string `json:"modelName,omitempty" yaml:"modelName,omitempty"`
	HardwareVersion *string `json:"hardwareVersion,omitempty" yaml:"hardwareVersion,omitempty"`
	FirmwareVersion *string `json:"firmwareVersion,omitempty" yaml:"firmwareVersion,omitempty"`

	UpperLimitVoltage *float32 `json:"upperLimitVoltage,omitempty" yaml:"upperLimitVoltage,omitempty"`
	UpperLimitCurrent *float32 `json:"upperLimitCurrent,omitempty" yaml:"upperLimitCurrent,omitempty"`

	// RawAll carries an ALL payload too short to decode
	RawAll []byte `json:"rawAll,omitempty" yaml:"rawAll,omitempty"`
}

// Kind identifies the type held by a Value
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
	KindString
	KindBytes
)

// Value is a single decoded field value
type Value struct {
	kind Kind
	f    float32
	i    int
	b    bool
	s    string
	raw  []byte
}

// Field is a named value taken from an Update
type Field struct {
	Name  string
	Value Value
}

func FloatValue(v float32) Value { return Value{kind: KindFloat, f: v} }
func IntValue(v int) Value       { return Value{kind: KindInt, i: v} }
func BoolValue(v bool) Value     { return Value{kind: KindBool, b: v} }
func StringValue(v string) Value { return Value{kind: KindString, s: v} }
func BytesValue(v []byte) Value  { return Value{kind: KindBytes, raw: v} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) Float() float32 { return v.f }
func (v Value) Int() int       { return v.i }
func (v Value) Bool() bool     { return v.b }
func (v Value) Str() string    { return v.s }
func (v Value) Bytes() []byte  { return v.raw }

// Equal reports whether both values have the same kind and content
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindFloat:
		return v.f == o.f
	case KindInt:
		return v.i == o.i
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	default:
		return string(v.raw) == string(o.raw)
	}
}

// Interface returns the value as a plain Go value
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return v.i
	case KindBool:
		return v.b
	case KindString:
		return v.s
	default:
		return v.raw
	}
}

// String formats the value for display
func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return strconv.FormatFloat(float64(v.f), 'f', -1, 32)
	case KindInt:
		return strconv.Itoa(v.i)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	default:
		return hex.EncodeToString(v.raw)
	}
}

// updateFieldNames holds the tag name of each Update struct field, in
// declaration order.
var updateFieldNames = func() []string {
	t := reflect.TypeOf(Update{})
	names := make([]string, t.NumField())
	for i := range names {
		tag := t.Field(i).Tag.Get("json")
		names[i] = strings.Split(tag, ",")[0]
	}
	return names
}()

// FieldNames returns every field name an Update can carry, in order
func FieldNames() []string {
	out := make([]string, len(updateFieldNames))
	copy(out, updateFieldNames)
	return out
}

// Fields returns the fields that are set, in declaration order
func (u Update) Fields() []Field {
	rv := reflect.ValueOf(u)
	var fields []Field
	for i, name := range updateFieldNames {
		fv := rv.Field(i)
		if fv.IsNil() {
			continue
		}
		fields = append(fields, Field{Name: name, Value: toValue(fv)})
	}
	return fields
}

// Get returns the named field, if set
func (u Update) Get(name string) (Value, bool) {
	for i, n := range updateFieldNames {
		if n != name {
			continue
		}
		fv := reflect.ValueOf(u).Field(i)
		if fv.IsNil() {
			return Value{}, false
		}
		return toValue(fv), true
	}
	return Value{}, false
}

// Len returns the number of fields that are set
func (u Update) Len() int {
	rv := reflect.ValueOf(u)
	n := 0
	for i := range updateFieldNames {
		if !rv.Field(i).IsNil() {
			n++
		}
	}
	return n
}

// Empty returns true when no field is set
func (u Update) Empty() bool {
	return u.Len() == 0
}

// Merge copies every field set in other into u, overwriting existing values
func (u *Update) Merge(other Update) {
	dst := reflect.ValueOf(u).Elem()
	src := reflect.ValueOf(other)
	for i := range updateFieldNames {
		if fv := src.Field(i); !fv.IsNil() {
			dst.Field(i).Set(fv)
		}
	}
}

// Map returns the set fields as a name -> plain value map
func (u Update) Map() map[string]interface{} {
	m := make(map[string]interface{})
	for _, f := range u.Fields() {
		m[f.Name] = f.Value.Interface()
	}
	return m
}

func toValue(fv reflect.Value) Value {
	if fv.Kind() == reflect.Slice {
		return BytesValue(fv.Bytes())
	}
	switch e := fv.Elem(); e.Kind() {
	case reflect.Float32:
		return FloatValue(float32(e.Float()))
	case reflect.Int:
		return IntValue(int(e.Int()))
	case reflect.Bool:
		return BoolValue(e.Bool())
	case reflect.String:
		return StringValue(e.String())
	default:
		panic(fmt.Sprintf("dps150: unsupported update field kind %s", e.Kind()))
	}
}

func f32p(v float32) *float32 { return &v }
func intp(v int) *int         { return &v }
func boolp(v bool) *bool      { return &v }
func strp(v string) *string   { return &v }
