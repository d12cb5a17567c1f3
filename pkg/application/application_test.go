package application

import (
	"net/http"
	"testing"
	"testing/fstest"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	key  string
	hits *int
}

func (c fakeController) Key() string { return c.key }

func (c fakeController) Register(r *mux.Router) {
	r.HandleFunc(c.key, func(http.ResponseWriter, *http.Request) { *c.hits++ })
}

type fakeService struct{ name string }

func TestApplication_ControllersKeepRegistrationOrder(t *testing.T) {
	app := New(&ApplicationOptions{})
	hits := 0
	app.RegisterControllers(
		fakeController{key: "/b", hits: &hits},
		fakeController{key: "/a", hits: &hits},
		fakeController{key: "/b", hits: &hits},
	)

	keys := []string{}
	for _, c := range app.Controllers() {
		keys = append(keys, c.Key())
	}
	require.Equal(t, []string{"/b", "/a"}, keys)
}

func TestApplication_ServiceLookupByType(t *testing.T) {
	app := New(&ApplicationOptions{})
	svc := &fakeService{name: "rotation"}
	app.RegisterServices(svc)

	got, ok := app.Service(fakeService{}).(*fakeService)
	require.True(t, ok)
	require.Same(t, svc, got)

	require.Panics(t, func() { app.Service(struct{}{}) })
}

func TestApplication_Migrations(t *testing.T) {
	app := New(&ApplicationOptions{})
	fsys := fstest.MapFS{"schema/00001_init.sql": {Data: []byte("-- +goose Up\n")}}
	app.RegisterMigrations(fsys, "schema")

	require.Len(t, app.Migrations(), 1)
	require.Equal(t, "schema", app.Migrations()[0].Dir)
	require.NotNil(t, app.Logger())
}
