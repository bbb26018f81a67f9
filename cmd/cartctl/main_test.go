package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/client"
	apperrors "storefront/internal/errors"
)

func memoryOptions(path string) options {
	return options{backend: "memory", path: path, logLevel: "error"}
}

// Unit Tests

func TestRun_MemoryBackend(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		args    []string
		want    []string
		wantErr string
	}{
		{
			name: "add shows the line and subtotal",
			path: "/shop-a/products",
			args: []string{"add", "p1", "Tea", "250", "2"},
			want: []string{"cart for shop-a", "p1", "Tea", "250.00", "500.00"},
		},
		{
			name: "add defaults quantity to one",
			path: "/shop-a",
			args: []string{"add", "p1", "Tea", "99.5"},
			want: []string{"99.50"},
		},
		{
			name: "show on an empty cart",
			path: "/shop-a",
			args: []string{"show"},
			want: []string{"cart for shop-a", "empty"},
		},
		{
			name: "no tenant uses the scratch cart",
			args: []string{"show"},
			want: []string{"cart for (no store)"},
		},
		{name: "invalid price", path: "/shop-a", args: []string{"add", "p1", "Tea", "abc"}, wantErr: `invalid price "abc"`},
		{name: "invalid quantity", path: "/shop-a", args: []string{"add", "p1", "Tea", "10", "x"}, wantErr: `invalid quantity "x"`},
		{name: "add needs arguments", path: "/shop-a", args: []string{"add", "p1"}, wantErr: "add needs"},
		{name: "set needs arguments", path: "/shop-a", args: []string{"set", "p1"}, wantErr: "set needs"},
		{name: "remove needs an id", path: "/shop-a", args: []string{"remove"}, wantErr: "remove needs"},
		{name: "unknown command", path: "/shop-a", args: []string{"buy"}, wantErr: `unknown command "buy"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), memoryOptions(tt.path), tt.args, &out)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestRun_FileBackendPersistsBetweenRuns(t *testing.T) {
	opts := options{backend: "file", dir: t.TempDir(), path: "/shop-a", logLevel: "error"}
	ctx := context.Background()

	require.NoError(t, run(ctx, opts, []string{"add", "p1", "Tea", "100", "3"}, &bytes.Buffer{}))
	require.NoError(t, run(ctx, opts, []string{"set", "p1", "1"}, &bytes.Buffer{}))

	var out bytes.Buffer
	require.NoError(t, run(ctx, opts, []string{"show"}, &out))
	assert.Contains(t, out.String(), "100.00")

	out.Reset()
	require.NoError(t, run(ctx, opts, []string{"remove", "p1"}, &out))
	assert.Contains(t, out.String(), "empty")
}

func TestRun_UnknownBackend(t *testing.T) {
	err := run(context.Background(), options{backend: "s3", path: "/shop-a", logLevel: "error"}, []string{"show"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown cart backend "s3"`)
}

func TestRun_Checkout(t *testing.T) {
	var placed map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/stores/shop-a/delivery-settings":
			_, _ = w.Write([]byte(`{"tenantId":"shop-a","insideRegionCharge":"60","outsideRegionCharge":"120","vatRate":"0","insideDivision":"Dhaka"}`))
		case "/api/v1/orders":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&placed))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":12,"tenantId":"shop-a","status":"pending","subTotal":"200","deliveryCharge":"60","total":"260","remaining":"260","items":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	opts := options{backend: "file", dir: t.TempDir(), path: "/shop-a", serverURL: srv.URL, logLevel: "error"}
	ctx := context.Background()
	require.NoError(t, run(ctx, opts, []string{"add", "p1", "Tea", "100", "2"}, &bytes.Buffer{}))

	opts.form = client.CheckoutForm{
		CustomerName:     "Rahim",
		CustomerPhone:    "01700000000",
		CustomerAddress:  "House 1",
		CustomerDivision: "Dhaka",
		PaymentMethod:    "cash_on_delivery",
	}
	var out bytes.Buffer
	require.NoError(t, run(ctx, opts, []string{"checkout"}, &out))

	assert.Contains(t, out.String(), "order 12 placed (pending)")
	assert.Contains(t, out.String(), "total 260.00")
	assert.Equal(t, "shop-a", placed["tenantId"])

	out.Reset()
	require.NoError(t, run(ctx, opts, []string{"show"}, &out))
	assert.Contains(t, out.String(), "empty")
}

func TestRun_CheckoutRejectsMissingFields(t *testing.T) {
	opts := options{backend: "file", dir: t.TempDir(), path: "/shop-a", serverURL: "http://127.0.0.1:1", logLevel: "error"}
	ctx := context.Background()
	require.NoError(t, run(ctx, opts, []string{"add", "p1", "Tea", "100"}, &bytes.Buffer{}))

	opts.form.PaymentMethod = "cash_on_delivery"
	err := run(ctx, opts, []string{"checkout"}, &bytes.Buffer{})
	_, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, describe(err), "customerName")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Equal(t, "", firstNonEmpty())
}
