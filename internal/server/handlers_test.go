package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristyson/DGK-Restaurante/internal/form"
	"github.com/kristyson/DGK-Restaurante/internal/policy"
	"github.com/kristyson/DGK-Restaurante/internal/weather"
	"github.com/kristyson/DGK-Restaurante/pkg/client"
	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

func itemIDs(records []types.MenuRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func validItem() map[string]any {
	return map[string]any{
		"name":        "Tapioca",
		"description": "Com queijo coalho",
		"price":       10.5,
		"category":    "Entrada",
		"unit":        "Olinda - PE",
		"available":   true,
	}
}

func TestListItems_DefaultsAndFilters(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/menu/v1/items", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody[itemsResponse](t, resp)
	assert.Equal(t, []string{"a3", "a4", "a2", "a1"}, itemIDs(body.Records))
	assert.Equal(t, 4, body.Total)
	assert.Equal(t, 3, body.AvailableCount)
	assert.NotNil(t, body.RefreshedAt)

	resp = env.do(t, http.MethodGet, "/menu/v1/items?location=Recife+-+PE&availability=disponivel&sort=price&dir=desc", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body = decodeBody[itemsResponse](t, resp)
	assert.Equal(t, []string{"a1", "a4"}, itemIDs(body.Records))
	assert.Equal(t, "price", string(body.Sort.Key))
	assert.Equal(t, "desc", string(body.Sort.Direction))

	resp = env.do(t, http.MethodGet, "/menu/v1/items?minPrice=10&maxPrice=20&name=CO", nil)
	body = decodeBody[itemsResponse](t, resp)
	assert.Equal(t, []string{"a2"}, itemIDs(body.Records))
}

func TestListItems_ToggleSort(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/menu/v1/items?sort=name&dir=asc&toggle=name", nil)
	body := decodeBody[itemsResponse](t, resp)
	assert.Equal(t, "desc", string(body.Sort.Direction))
	assert.Equal(t, []string{"a1", "a2", "a4", "a3"}, itemIDs(body.Records))

	resp = env.do(t, http.MethodGet, "/menu/v1/items?sort=name&dir=desc&toggle=unit", nil)
	body = decodeBody[itemsResponse](t, resp)
	assert.Equal(t, "location", string(body.Sort.Key))
	assert.Equal(t, "asc", string(body.Sort.Direction))
}

func TestCreateItem_Success(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/menu/v1/items", validItem())
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	res := decodeBody[form.Result](t, resp)
	assert.Equal(t, []string{"new001"}, res.IDs)
	assert.Equal(t, "menu item created", res.Message)

	require.Len(t, env.gw.creates, 1)
	assert.Equal(t, types.MenuFields{
		Name:        "Tapioca",
		Description: "Com queijo coalho",
		Price:       10.5,
		Category:    "Entrada",
		Unit:        "Olinda - PE",
		Available:   true,
	}, env.gw.creates[0])

	_, err := env.store.Get("new001")
	require.NoError(t, err, "store refreshed after create")
}

func TestCreateItem_PriceAsText(t *testing.T) {
	env := newTestEnv(t)
	item := validItem()
	item["price"] = " 7.25 "

	resp := env.do(t, http.MethodPost, "/menu/v1/items", item)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, 7.25, env.gw.creates[0].Price)
}

func TestCreateItem_AvailableDefaultsToTrue(t *testing.T) {
	env := newTestEnv(t)
	item := validItem()
	delete(item, "available")

	resp := env.do(t, http.MethodPost, "/menu/v1/items", item)
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.True(t, env.gw.creates[0].Available)
}

func TestCreateItem_LocalValidation(t *testing.T) {
	env := newTestEnv(t)
	item := validItem()
	item["name"] = " "
	item["price"] = "abc"

	resp := env.do(t, http.MethodPost, "/menu/v1/items", item)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, problemContentType, resp.Header().Get("Content-Type"))

	problem := decodeBody[types.ProblemDetail](t, resp)
	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	fields := make([]string, 0, len(problem.Errors))
	for _, e := range problem.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"name", "price"}, fields)
	assert.Zero(t, env.gw.createCount())
}

func TestCreateItem_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/menu/v1/items", `{"name": "x", "calories": 10}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.do(t, http.MethodPost, "/menu/v1/items", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, env.gw.createCount())
}

func TestCreateItem_RemoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"server validation", &client.ValidationError{Status: 400, Code: 142, Message: "price must be a number"}, http.StatusBadRequest},
		{"transport", &client.TransportError{Op: "POST /classes/MenuItem", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"server", &client.ServerError{Status: 500, Message: "internal"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.gw.createFn = func(context.Context, types.MenuFields) (string, error) {
				return "", tt.err
			}

			resp := env.do(t, http.MethodPost, "/menu/v1/items", validItem())
			assert.Equal(t, tt.status, resp.Code)
			problem := decodeBody[types.ProblemDetail](t, resp)
			assert.Contains(t, problem.Detail, tt.err.Error())
		})
	}
}

func TestCreateItem_ApplyAllLocations(t *testing.T) {
	env := newTestEnv(t)
	item := validItem()
	item["unit"] = ""
	item["applyAllLocations"] = true

	resp := env.do(t, http.MethodPost, "/menu/v1/items", item)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	res := decodeBody[form.Result](t, resp)
	assert.Len(t, res.IDs, 3)
	require.Len(t, env.gw.creates, 3)
	for i, loc := range testLocations {
		assert.Equal(t, loc.Key, env.gw.creates[i].Unit)
	}
}

func TestCreateItem_ApplyAllLocationsPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.gw.createFn = func(_ context.Context, fields types.MenuFields) (string, error) {
		calls++
		if calls == 2 {
			return "", &client.ServerError{Status: 500, Message: "boom"}
		}
		return "id-" + fields.Unit, nil
	}
	item := validItem()
	item["applyAllLocations"] = true

	resp := env.do(t, http.MethodPost, "/menu/v1/items", item)
	require.Equal(t, http.StatusBadGateway, resp.Code)

	problem := decodeBody[types.ProblemDetail](t, resp)
	assert.Contains(t, problem.Detail, "not rolled back")
	assert.Equal(t, 3, env.gw.createCount(), "remaining locations still attempted")
}

func TestUpdateItem(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/menu/v1/items/a2", map[string]any{"price": 13.5})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	patch, ok := env.gw.updates["a2"]
	require.True(t, ok)
	require.NotNil(t, patch.Price)
	assert.Equal(t, 13.5, *patch.Price)
	require.NotNil(t, patch.Name)
	assert.Equal(t, "Cocada", *patch.Name, "unchanged fields come from the stored record")

	rec, err := env.store.Get("a2")
	require.NoError(t, err)
	assert.Equal(t, 13.5, *rec.Price)
}

func TestUpdateItem_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/menu/v1/items/missing", map[string]any{"price": 1})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Empty(t, env.gw.updates)

	env.gw.updateFn = func(context.Context, string, types.MenuPatch) error {
		return &client.NotFoundError{Class: "MenuItem", ID: "a1", Message: "Object not found."}
	}
	resp = env.do(t, http.MethodPut, "/menu/v1/items/a1", map[string]any{"price": 1})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdateItem_Validation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/menu/v1/items/a1", map[string]any{"price": -3})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Empty(t, env.gw.updates)
}

func TestDeleteItem(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodDelete, "/menu/v1/items/a1", nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []string{"a1"}, env.gw.deletes)

	_, err := env.store.Get("a1")
	assert.Error(t, err)

	env.gw.deleteFn = func(context.Context, string) error {
		return &client.NotFoundError{Class: "MenuItem", ID: "zz"}
	}
	resp = env.do(t, http.MethodDelete, "/menu/v1/items/zz", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestToggleAvailability(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/menu/v1/items/a2/availability", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, toggleResponse{ID: "a2", Available: false}, decodeBody[toggleResponse](t, resp))

	resp = env.do(t, http.MethodPost, "/menu/v1/items/a2/availability", nil)
	assert.Equal(t, toggleResponse{ID: "a2", Available: true}, decodeBody[toggleResponse](t, resp))

	resp = env.do(t, http.MethodPost, "/menu/v1/items/nope/availability", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.gw.records = env.gw.records[:2]

	resp := env.do(t, http.MethodPost, "/menu/v1/refresh", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, decodeBody[refreshResponse](t, resp).Total)

	env.gw.listFn = func(context.Context) ([]types.MenuRecord, error) {
		return nil, &client.TransportError{Op: "GET /classes/MenuItem", Err: errors.New("timeout")}
	}
	resp = env.do(t, http.MethodPost, "/menu/v1/refresh", nil)
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Len(t, env.store.Records(), 2, "previous list kept")
}

func TestReadOnlyModeBlocksMutations(t *testing.T) {
	guard, err := policy.NewGuard(policy.ModeReadOnly, false)
	require.NoError(t, err)
	env := newTestEnv(t, WithGuard(guard))

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/menu/v1/items", validItem()},
		{http.MethodPut, "/menu/v1/items/a1", map[string]any{"price": 1}},
		{http.MethodDelete, "/menu/v1/items/a1", nil},
		{http.MethodPost, "/menu/v1/items/a1/availability", nil},
	} {
		resp := env.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusForbidden, resp.Code, "%s %s", tc.method, tc.path)
	}
	assert.Zero(t, env.gw.createCount())
	assert.Empty(t, env.gw.updates)
	assert.Empty(t, env.gw.deletes)

	resp := env.do(t, http.MethodGet, "/menu/v1/items", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestMutationsAreAudited(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, WithLogger(zerolog.New(&buf)))

	req := validItem()
	resp := env.do(t, http.MethodPost, "/menu/v1/items", req)
	require.Equal(t, http.StatusCreated, resp.Code)

	var audits []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["event"] == "menu.mutation.completed" {
			audits = append(audits, entry)
		}
	}
	require.Len(t, audits, 1)
	assert.Equal(t, "menu.create", audits[0]["operation"])
	assert.Equal(t, "success", audits[0]["result"])
	assert.Equal(t, []any{"new001"}, audits[0]["record_ids"])
	assert.NotEmpty(t, audits[0]["request_id"])
}

func TestCategoriesAndLocations(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/menu/v1/categories", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	categories := decodeBody[map[string][]string](t, resp)
	assert.Equal(t, []string{"Entrada", "Prato principal", "Sobremesa", "Bebida", "Sobremesa da casa"}, categories["categories"])

	resp = env.do(t, http.MethodGet, "/menu/v1/locations", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	locations := decodeBody[map[string][]string](t, resp)
	assert.Equal(t, []string{"all", "Recife - PE", "Olinda - PE", "Jaboatão dos Guararapes - PE"}, locations["locations"])
}

func TestWeather(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/menu/v1/weather", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	status := decodeBody[weather.Status](t, resp)
	assert.Equal(t, weather.StateAdvisory, status.State)

	resp = env.do(t, http.MethodPut, "/menu/v1/weather", map[string]string{"location": "Olinda - PE"})
	require.Equal(t, http.StatusOK, resp.Code)
	status = decodeBody[weather.Status](t, resp)
	assert.Equal(t, weather.StateReady, status.State)
	require.NotNil(t, status.Snapshot)
	assert.Equal(t, "Olinda - PE", status.Snapshot.Location)
	assert.Equal(t, 1, env.fc.calls)

	resp = env.do(t, http.MethodPut, "/menu/v1/weather", map[string]string{"location": "all"})
	require.Equal(t, http.StatusOK, resp.Code)
	status = decodeBody[weather.Status](t, resp)
	assert.Equal(t, weather.Advisory, status.Message)
	assert.Equal(t, 1, env.fc.calls, "advisory issues no request")
}

func TestWeather_Errors(t *testing.T) {
	tests := []struct {
		name     string
		location string
		err      error
		status   int
	}{
		{"unknown location", "Caruaru - PE", nil, http.StatusNotFound},
		{"data unavailable", "Recife - PE", &client.DataUnavailableError{Message: "current weather unavailable"}, http.StatusServiceUnavailable},
		{"transport", "Recife - PE", &client.TransportError{Op: "fetching forecast", Err: errors.New("timeout")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.fc.fetchFn = func(context.Context, float64, float64) (types.WeatherSnapshot, error) {
				return types.WeatherSnapshot{}, tt.err
			}

			resp := env.do(t, http.MethodPut, "/menu/v1/weather", map[string]string{"location": tt.location})
			assert.Equal(t, tt.status, resp.Code)
			problem := decodeBody[types.ProblemDetail](t, resp)
			if tt.err != nil {
				assert.Contains(t, problem.Detail, "weather lookup failed")
			}
		})
	}
}

func TestWeather_UnknownLocationReplacesForecast(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/menu/v1/weather", map[string]string{"location": "Recife - PE"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, http.MethodPut, "/menu/v1/weather", map[string]string{"location": "Caruaru - PE"})
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = env.do(t, http.MethodGet, "/menu/v1/weather", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	status := decodeBody[weather.Status](t, resp)
	assert.Equal(t, "Caruaru - PE", status.Location)
	assert.Equal(t, weather.StateFailed, status.State)
	assert.Nil(t, status.Snapshot)
	assert.Contains(t, status.Message, "unknown location")
}

func listDown(context.Context) ([]types.MenuRecord, error) {
	return nil, &client.TransportError{Op: "GET /classes/MenuItem", Err: errors.New("list down")}
}

func TestCreateItem_FailedReloadStillReportsCreate(t *testing.T) {
	env := newTestEnv(t)
	env.gw.listFn = listDown

	resp := env.do(t, http.MethodPost, "/menu/v1/items", validItem())
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	res := decodeBody[form.Result](t, resp)
	assert.Equal(t, []string{"new001"}, res.IDs)
	assert.Contains(t, res.Warning, "list down")
	assert.Len(t, env.gw.creates, 1)
}

func TestCreateItem_ApplyAllFailedReloadIsNotPartial(t *testing.T) {
	env := newTestEnv(t)
	env.gw.listFn = listDown

	item := validItem()
	item["unit"] = ""
	item["applyAllLocations"] = true

	resp := env.do(t, http.MethodPost, "/menu/v1/items", item)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	res := decodeBody[form.Result](t, resp)
	assert.Equal(t, []string{"new001", "new002", "new003"}, res.IDs)
	assert.NotEmpty(t, res.Warning)
}

func TestDeleteAndToggle_FailedReload(t *testing.T) {
	env := newTestEnv(t)
	env.gw.listFn = listDown

	resp := env.do(t, http.MethodDelete, "/menu/v1/items/a1", nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []string{"a1"}, env.gw.deletes)

	resp = env.do(t, http.MethodPost, "/menu/v1/items/a2/availability", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	toggled := decodeBody[toggleResponse](t, resp)
	assert.False(t, toggled.Available)
	assert.Contains(t, toggled.Warning, "list down")
}
