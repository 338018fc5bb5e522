package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// render writes an HTML page, falling back to a plain 500 when the template fails.
func render(w http.ResponseWriter, views *Views, logger logrus.FieldLogger, status int, name string, data interface{}) {
	if err := views.Render(w, status, name, data); err != nil {
		logger.WithError(err).WithField("template", name).Error("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// newValidator reports fields by their JSON names so errors match the payload.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
