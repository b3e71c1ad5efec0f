package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sells-group/territory-cli/internal/region"
)

var validate = validator.New()

func init() {
	_ = validate.RegisterValidation("regiontype", func(fl validator.FieldLevel) bool {
		_, err := region.ParseType(fl.Field().String())
		return err == nil
	})
}

// maxBodyBytes bounds request bodies; a batch of a few thousand
// addresses fits comfortably.
const maxBodyBytes = 4 << 20

// Decode reads a JSON body into v and validates its struct tags.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}

// RegionType validates a {type} path parameter.
func RegionType(s string) (region.Type, error) {
	if err := validate.Var(s, "required,regiontype"); err != nil {
		return "", fmt.Errorf("invalid region type %q", s)
	}
	return region.ParseType(s)
}

type resolveRequest struct {
	ID      string           `json:"id" validate:"max=256"`
	Address string           `json:"address" validate:"required_without=Geo,max=1024"`
	Geo     *region.GeoParts `json:"geo"`
}

type batchRequest struct {
	Requests []resolveRequest `json:"requests" validate:"max=5000,dive"`
}

type assignmentRequest struct {
	Name        string `json:"name" validate:"max=256"`
	InstallerID string `json:"installer_id" validate:"required,max=256"`
}

type installerRequest struct {
	Name  string `json:"name" validate:"required,max=256"`
	Email string `json:"email" validate:"omitempty,email"`
}
