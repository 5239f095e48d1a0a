package pricingclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const carSnapshot = `{"success":true,"data":{
	"record_id":"7f0f6b44-7c33-4a0e-9bd7-1e1f2d3c4b5a",
	"snapshot":{"category":"car","trip_type":"one-way","auto_price":0,
		"distance_pricing":{"50km":12,"100km":10,"150km":8,"200km":7,"250km":6,"300km":5}},
	"tax_rate":0.05,"currency":"INR"}}`

func TestFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, snapshotPath, r.URL.Path)
		assert.Equal(t, "car", r.URL.Query().Get("category"))
		assert.Equal(t, "Sedan", r.URL.Query().Get("vehicle_type"))
		assert.Equal(t, "", r.URL.Query().Get("vehicle_model"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(carSnapshot))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	snap, err := c.FetchSnapshot(context.Background(), Query{
		Category: fare.CategoryCar, VehicleType: "Sedan", TripType: fare.TripOneWay,
	})

	require.NoError(t, err)
	assert.Equal(t, fare.CategoryCar, snap.Snapshot.Category)
	assert.Equal(t, 8.0, snap.Snapshot.DistancePricing[fare.Tier150])
	assert.Equal(t, 0.05, snap.TaxRate)
}

func TestPreview_UsesLocalArithmetic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(carSnapshot))
	}))
	defer srv.Close()

	q, err := New(srv.URL, time.Second).Preview(context.Background(), Query{
		Category: fare.CategoryCar, VehicleType: "Sedan", TripType: fare.TripOneWay,
	}, 80, true)

	require.NoError(t, err)
	assert.Equal(t, fare.Tier100, q.Tier)
	assert.Equal(t, 800.0, q.BaseFare)
	assert.Equal(t, 40.0, q.Tax)
	assert.Equal(t, 840.0, q.Total)
}

func TestFetchSnapshot_NotConfigured(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"PRICING_NOT_CONFIGURED","message":"pricing not configured"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).FetchSnapshot(context.Background(), Query{
		Category: fare.CategoryBus, VehicleType: "Volvo", VehicleModel: "9400", TripType: fare.TripReturn,
	})

	assert.ErrorIs(t, err, ErrPricingUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "404 must not be retried")
}

func TestServerQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, farePath, r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"record_id":"7f0f6b44-7c33-4a0e-9bd7-1e1f2d3c4b5a","source":"default",
			"quote":{"category":"auto","trip_type":"one-way","distance_km":12,"base_fare":200,"tax":0,"tax_rate":0,"total":200,"currency":"INR"}}}`))
	}))
	defer srv.Close()

	q, err := New(srv.URL, time.Second).ServerQuote(context.Background(), Query{
		Category: fare.CategoryAuto, VehicleType: "Auto Rickshaw", TripType: fare.TripOneWay,
	}, 12, false)

	require.NoError(t, err)
	assert.Equal(t, 200.0, q.BaseFare)
	assert.Equal(t, 200.0, q.Total)
}

func TestDecode_ErrorEnvelope(t *testing.T) {
	err := decode([]byte(`{"success":false,"error":{"code":"BAD_REQUEST","message":"nope"}}`), &Snapshot{})
	assert.EqualError(t, err, "pricing api error BAD_REQUEST: nope")
}

func TestPreviewFromSnapshot_ZeroRatesUnavailable(t *testing.T) {
	snap := &Snapshot{Snapshot: fare.Snapshot{
		Category: fare.CategoryCar,
		TripType: fare.TripOneWay,
		DistancePricing: fare.TierRates{
			fare.Tier50: 0, fare.Tier100: 0, fare.Tier150: 0, fare.Tier200: 0, fare.Tier250: 0, fare.Tier300: 0,
		},
	}, TaxRate: 0.05}

	_, err := PreviewFromSnapshot(snap, 80, true)
	assert.ErrorIs(t, err, ErrPricingUnavailable)

	_, err = PreviewFromSnapshot(&Snapshot{Snapshot: fare.Snapshot{Category: fare.CategoryAuto}}, 5, false)
	assert.ErrorIs(t, err, ErrPricingUnavailable)
}
