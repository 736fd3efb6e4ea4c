package utils

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/leeforge/globaltree/json"
)

// PrintJSON writes v as indented JSON followed by a newline.
func PrintJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Routes lists every route registered on r as "METHOD /path".
func Routes(r chi.Routes) ([]string, error) {
	var out []string
	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		out = append(out, fmt.Sprintf("%-6s %s", method, strings.ReplaceAll(route, "/*/", "/")))
		return nil
	}
	if err := chi.Walk(r, walkFunc); err != nil {
		return nil, err
	}
	return out, nil
}
