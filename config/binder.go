package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Binder decodes merged source data into a struct and validates the result.
//
// Fields are mapped through `config` tags and checked against `validate`
// tags (go-playground/validator). Decoding is weakly typed, so "8080" fills
// an int field, "5s" a time.Duration and "a,b" a []string.
type Binder struct {
	validator *validator.Validate
}

// Stages of a BindError.
const (
	StageDecode   = "decode"
	StageValidate = "validate"
)

// BindError reports which stage of Bind failed.
type BindError struct {
	Stage string
	Err   error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Stage, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Fields lists the namespaces of the fields that failed validation, e.g.
// "Root.Server.Addr". It is empty for decode errors.
func (e *BindError) Fields() []string {
	var verrs validator.ValidationErrors
	if !errors.As(e.Err, &verrs) {
		return nil
	}
	out := make([]string, len(verrs))
	for i, fe := range verrs {
		out[i] = fe.Namespace()
	}
	return out
}

func NewBinder() *Binder {
	return &Binder{validator: validator.New(validator.WithRequiredStructEnabled())}
}

// Bind decodes source into target, a pointer to a struct, and validates it.
// target may be partially filled when validation fails.
func (b *Binder) Bind(source map[string]any, target any) error {
	if err := b.decode(source, target); err != nil {
		return &BindError{Stage: StageDecode, Err: err}
	}
	if err := b.validator.Struct(target); err != nil {
		return &BindError{Stage: StageValidate, Err: err}
	}
	return nil
}

func (b *Binder) decode(source map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		TagName: "config",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(source)
}
