package cache

import (
	"context"
	"io"
	"net"
	"testing"

	"hospital-appointment-service/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}

	client, err := NewRedisClient(config.RedisConfig{Host: host, Port: port}, quietLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "ping-check", "1", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("ping-check") {
		t.Fatalf("expected key to reach the server")
	}
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := net.SplitHostPort(mr.Addr())
	mr.Close()

	if _, err := NewRedisClient(config.RedisConfig{Host: host, Port: port}, quietLogger()); err == nil {
		t.Fatalf("expected an error for a closed server")
	}
}
