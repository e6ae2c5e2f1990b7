package sow

import (
	"encoding/json"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mtaala/core"
)

// DecodeDocument reads and validates an authored scheme-of-work JSON file.
// Schema violations come back as a core.ValidationError with one entry per
// offending field so batch mode can report them before touching the store.
func DecodeDocument(r io.Reader) (SchemeOfWork, error) {
	var doc SchemeOfWork
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return SchemeOfWork{}, errors.Wrap(err, "decoding scheme of work")
	}
	if err := ValidateDocument(doc); err != nil {
		return SchemeOfWork{}, err
	}
	return doc, nil
}

// ValidateDocument checks the authored document against the input schema.
func ValidateDocument(doc SchemeOfWork) error {
	err := core.Validate.Struct(doc)
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	flds := make([]core.FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		flds = append(flds, core.FieldError{
			Field: vErr.Namespace(),
			Error: vErr.Translate(core.Translator),
		})
	}
	return core.NewValidationError(errors.New("scheme of work failed schema validation"), flds...)
}
