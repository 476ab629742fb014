package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lotFeedJSON = `{
	"lots": [
		{"lotNumber": "78912345", "make": "Nissan", "model": "Skyline GT-R", "year": 1999,
		 "vin": "JN1GBNR34A0123456", "odometer": 88000, "currentBid": 15500,
		 "primaryDamage": "Front End", "locationName": "Dallas, TX",
		 "saleDate": "2026-09-12", "lotUrl": "https://example.com/lot/78912345"},
		{"lotNumber": "78912346", "make": "Toyota", "model": "Supra", "year": 1997,
		 "vin": "JT2DE82A0V0123456", "currentBid": 22000, "primaryDamage": "Flood"},
		"not an object"
	]
}`

func TestAuctionAdapter_ParsesLotFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(lotFeedJSON)) //nolint:errcheck
	}))
	defer srv.Close()

	a := NewAuctionAdapter("copart", SourceConfig{URL: srv.URL}, NewFetcher())
	items, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	first := items[0].Payload.Auction
	require.NotNil(t, first)
	assert.Equal(t, "copart", first.Source)
	assert.Equal(t, "78912345", first.LotNumber)
	assert.Equal(t, 88000, first.Mileage)
	assert.Equal(t, "moderate", first.DamageSeverity)

	assert.Equal(t, "major", items[1].Payload.Auction.DamageSeverity, "flood classifies major")

	// The malformed third lot degrades to opaque instead of failing the feed.
	assert.Equal(t, KindOpaque, items[2].Payload.Kind)
	assert.NotEmpty(t, items[2].Raw)
}

func TestAuctionAdapter_MalformedFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>maintenance page</html>`)) //nolint:errcheck
	}))
	defer srv.Close()

	a := NewAuctionAdapter("copart", SourceConfig{URL: srv.URL}, NewFetcher())
	_, err := a.Fetch(context.Background())
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestClassifyDamageSeverity(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"Minor Dents and Scratches", "minor"},
		{"Cosmetic", "minor"},
		{"Front End", "moderate"},
		{"Rear End Collision", "moderate"},
		{"Flood", "major"},
		{"Fire Damage", "major"},
		{"Total Loss", "major"},
		{"", "moderate"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDamageSeverity(tt.desc))
		})
	}
}
