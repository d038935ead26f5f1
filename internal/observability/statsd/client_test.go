package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"boostd", " job/finished ", "boostd.job_finished"},
		{"boostd", "foo..bar", "boostd.foo.bar"},
		{"", "multi  space", "multi__space"},
		{"boostd", " ", ""},
	}

	for _, tt := range tests {
		if got := metricName(tt.prefix, tt.name); got != tt.want {
			t.Fatalf("metricName(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " boostd "}
	local := map[string]string{"status": " completed ", "": "ignored", "env": "stage"}

	got := formatTags(global, local)
	want := "|#env:stage,service:boostd,status:completed"
	if got != want {
		t.Fatalf("formatTags() = %q, want %q", got, want)
	}
	if formatTags(nil, nil) != "" {
		t.Fatalf("expected empty tag suffix")
	}
}

func TestClientDisabledIsNoop(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Count("x", 1, nil)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var nilClient *Client
	nilClient.Gauge("x", 1, nil)
	if nilClient.Enabled() {
		t.Fatalf("nil client must report disabled")
	}
}

func TestClientWritesDatagrams(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	c, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     "boostd.",
		GlobalTags: map[string]string{"env": "test"},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	c.Timing("job.duration", 1500*time.Microsecond, map[string]string{"status": "completed"})

	buf := make([]byte, 512)
	if err := pc.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	got := string(buf[:n])
	want := "boostd.job.duration:1.5|ms|#env:test,status:completed"
	if !strings.EqualFold(got, want) {
		t.Fatalf("datagram = %q, want %q", got, want)
	}
}
