// Package factory builds the public router named by router_type.
package factory

import (
	"fmt"
	"strings"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/server/router"
	ginadapter "github.com/nimburion/taskboard/pkg/server/router/gin"
	gorillaadapter "github.com/nimburion/taskboard/pkg/server/router/gorilla"
	nethttpadapter "github.com/nimburion/taskboard/pkg/server/router/nethttp"
)

// NewRouter returns an empty router of the given type. Matching ignores case
// and surrounding space; "" selects nethttp.
func NewRouter(routerType string) (router.Router, error) {
	switch strings.ToLower(strings.TrimSpace(routerType)) {
	case "", config.RouterNetHTTP:
		return nethttpadapter.NewRouter(), nil
	case config.RouterGin:
		return ginadapter.NewRouter(), nil
	case config.RouterGorilla:
		return gorillaadapter.NewRouter(), nil
	}
	return nil, fmt.Errorf("unsupported router type %q (supported: %s)", routerType, strings.Join(SupportedTypes(), ", "))
}

// SupportedTypes lists the accepted router_type values in sorted order.
func SupportedTypes() []string {
	return []string{config.RouterGin, config.RouterGorilla, config.RouterNetHTTP}
}
