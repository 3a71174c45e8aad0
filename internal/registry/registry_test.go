package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/mockcarrier"
	"github.com/stretchr/testify/require"
)

func emptyCreds(carriers.Code) carriers.Credentials {
	return carriers.Credentials{}
}

func TestRegistry_NoCredentials_AllCarriersStillSupported(t *testing.T) {
	r := New(WithCredentials(emptyCreds))
	ctx := context.Background()

	// UPS и FedEx (oauth) без кредов падают в mock fallback, USPS остаётся
	// реальным, но недоступным. Supported set не сжимается.
	require.Equal(t, []carriers.Code{carriers.UPS, carriers.FedEx, carriers.USPS}, r.SupportedCarriers(ctx))

	for _, code := range carriers.Codes() {
		p, ok := r.Get(ctx, code)
		require.True(t, ok, string(code))
		require.NotNil(t, p)
	}

	ups, _ := r.Get(ctx, carriers.UPS)
	_, isMock := ups.(*mockcarrier.Provider)
	require.True(t, isMock)

	usps, _ := r.Get(ctx, carriers.USPS)
	_, isMock = usps.(*mockcarrier.Provider)
	require.False(t, isMock)
	require.False(t, usps.IsAvailable())
}

func TestRegistry_USPSAvailableWithUserID(t *testing.T) {
	r := New(WithCredentials(func(code carriers.Code) carriers.Credentials {
		if code == carriers.USPS {
			return carriers.Credentials{UserID: "user123", APIKey: "user123"}
		}
		return carriers.Credentials{}
	}))

	usps, ok := r.Get(context.Background(), carriers.USPS)
	require.True(t, ok)
	require.True(t, usps.IsAvailable())
}

func TestRegistry_UnknownCarrier(t *testing.T) {
	r := New(WithCredentials(emptyCreds))
	_, ok := r.Get(context.Background(), carriers.Code("DHL"))
	require.False(t, ok)
	require.False(t, r.IsSupported(context.Background(), carriers.Code("DHL")))
}

func TestRegistry_InitializeOnce_Concurrent(t *testing.T) {
	var loads atomic.Int64
	r := New(
		WithCredentials(emptyCreds),
		WithConfigs(func() map[carriers.Code]carriers.Config {
			loads.Add(1)
			return carriers.DefaultConfigs()
		}),
	)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Get(context.Background(), carriers.UPS)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), loads.Load())
}

func TestRegistry_MockFallbackKeepsMockTable(t *testing.T) {
	r := New(WithCredentials(emptyCreds))

	ups, _ := r.Get(context.Background(), carriers.UPS)
	info := ups.MockData("1Z999AA1234567890")
	require.NotNil(t, info)
	require.Equal(t, "UPS", info.Carrier)
}

func TestRegistry_Config(t *testing.T) {
	r := New(WithCredentials(emptyCreds))

	cfg, ok := r.Config(context.Background(), carriers.FedEx)
	require.True(t, ok)
	require.Equal(t, "FedEx", cfg.Name)

	_, ok = r.Config(context.Background(), carriers.Code("DHL"))
	require.False(t, ok)
}
