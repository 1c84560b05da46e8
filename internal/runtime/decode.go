package runtime

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// decodeOptions decodes a loose option map as hosts store it. Numbers and
// strings are interchangeable, so page 1 and page "1" decode the same.
func decodeOptions(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}
