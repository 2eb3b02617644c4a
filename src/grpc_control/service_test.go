package grpc_control

import (
	"context"
	"errors"
	"net"
	"testing"

	"paper-trader/src/logger"
	"paper-trader/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeFeeds struct {
	running map[string]bool
}

func (f *fakeFeeds) ListStatus() []models.MFeedStatus {
	return []models.MFeedStatus{
		{Name: "binance", Market: models.MarketCrypto, IsRunning: f.running["binance"], IsRealTime: true},
		{Name: "simulator", Market: models.MarketStocks, IsRunning: f.running["simulator"]},
	}
}

func (f *fakeFeeds) StartFeed(name string) error {
	if _, ok := f.running[name]; !ok {
		return errors.New("feed " + name + " not found")
	}
	f.running[name] = true
	return nil
}

func (f *fakeFeeds) StopFeed(name string) error {
	if _, ok := f.running[name]; !ok {
		return errors.New("feed " + name + " not found")
	}
	f.running[name] = false
	return nil
}

type fakeStats struct{}

func (fakeStats) Stats() (int, int) { return 3, 5 }
func (fakeStats) Failures() int     { return 1 }
func (fakeStats) Dropped() int      { return 2 }

func dialControl(t *testing.T, feeds *fakeFeeds) *ControlClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	log := logger.NewLogger("control-test")
	srv := NewServer(NewControlService(feeds, fakeStats{}, fakeStats{}, log), log)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewControlClient(conn)
}

// -----------------------------------------------------------------------------

func TestListAndToggleFeeds(t *testing.T) {
	feeds := &fakeFeeds{running: map[string]bool{"binance": true, "simulator": false}}
	client := dialControl(t, feeds)
	ctx := context.Background()

	res, err := client.ListFeeds(ctx)
	if err != nil {
		t.Fatal(err)
	}
	list := res.GetFields()["feeds"].GetListValue().GetValues()
	if len(list) != 2 || list[0].GetStructValue().GetFields()["name"].GetStringValue() != "binance" {
		t.Fatalf("unexpected feeds %v", res)
	}

	res, err = client.StartFeed(ctx, "simulator")
	if err != nil {
		t.Fatal(err)
	}
	if !res.GetFields()["success"].GetBoolValue() || !feeds.running["simulator"] {
		t.Errorf("start failed: %v", res)
	}

	res, err = client.StopFeed(ctx, "yahoo")
	if err != nil {
		t.Fatal(err)
	}
	if res.GetFields()["success"].GetBoolValue() {
		t.Errorf("stopping an unknown feed succeeded: %v", res)
	}

	_, err = client.StartFeed(ctx, "")
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("want InvalidArgument, got %v", err)
	}
}

func TestLedgerStats(t *testing.T) {
	client := dialControl(t, &fakeFeeds{running: map[string]bool{}})

	res, err := client.LedgerStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	f := res.GetFields()
	if f["accounts"].GetNumberValue() != 3 || f["open_positions"].GetNumberValue() != 5 {
		t.Errorf("unexpected stats %v", res)
	}
	if f["persistence_dropped"].GetNumberValue() != 2 {
		t.Errorf("unexpected persistence stats %v", res)
	}
}
