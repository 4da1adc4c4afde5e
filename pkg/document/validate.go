package document

import (
	"encoding/json"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// BlockError describes a problem with a single block.
type BlockError struct {
	Index int
	ID    string
	Err   error
}

func (e *BlockError) Error() string {
	return "block " + e.ID + ": " + e.Err.Error()
}

func (e *BlockError) Unwrap() error { return e.Err }

// Validate reports every problem found in bs. Payload problems are
// reported even though loading tolerates them, so tools can flag documents
// that only render thanks to fallbacks.
func Validate(bs Blocks) error {
	var (
		result error
		seen   = make(map[string]int, len(bs))
	)
	for i, b := range bs {
		if err := ValidateBlock(b); err != nil {
			result = multierr.Append(result, &BlockError{Index: i, ID: b.ID, Err: err})
		}
		if b.ID == "" {
			continue
		}
		if j, ok := seen[b.ID]; ok {
			result = multierr.Append(result, &BlockError{
				Index: i,
				ID:    b.ID,
				Err:   errors.Errorf("duplicate id, first used by block %d", j),
			})
			continue
		}
		seen[b.ID] = i
	}
	return result
}

// ValidateBlock checks the fields of a single block.
func ValidateBlock(b Block) error {
	var result error
	if err := getValidator().Struct(b); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				result = multierr.Append(result, errors.Errorf("field %s failed %q", fe.Field(), fe.Tag()))
			}
		} else {
			result = multierr.Append(result, errors.WithStack(err))
		}
	}
	if b.Type.HasPayload() && !json.Valid([]byte(b.Content)) {
		result = multierr.Append(result, errors.Errorf("%s payload is not valid JSON", b.Type))
	}
	if b.Type == TypeHeading && b.Level == 0 {
		result = multierr.Append(result, errors.New("heading without level"))
	}
	return result
}
