package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/bitswing/bitswing/pkg/dataplane"
	"github.com/bitswing/bitswing/pkg/limits"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeDataPlane implements dataplane.Interface for handler tests.
type fakeDataPlane struct {
	stats dataplane.Statistics
	iface string
	mode  string
}

func (f *fakeDataPlane) GetStatistics() dataplane.Statistics { return f.stats }
func (f *fakeDataPlane) InterfaceName() string               { return f.iface }
func (f *fakeDataPlane) Mode() string                        { return f.mode }

// fakeLimits implements limits.Provider for handler tests.
type fakeLimits struct {
	rules    []limits.PortLimit
	stats    []limits.PortStats
	statsErr error
}

func (f *fakeLimits) Rules() []limits.PortLimit { return f.rules }

func (f *fakeLimits) Stats() ([]limits.PortStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

var errMapGone = errors.New("map read failed")

// serve runs one request through a router exposing only the given route.
func serve(method, path string, register func(*gin.Engine)) *httptest.ResponseRecorder {
	router := gin.New()
	register(router)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}
