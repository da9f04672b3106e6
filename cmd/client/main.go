// blitz-client 无界面客户端：连接服务端，随机游走并定期攻击
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blitz/bot"
	"blitz/client"
	"blitz/logging"
	"blitz/transport"
	"blitz/transport/enet"
	"blitz/transport/ws"
)

func main() {
	var (
		mode     string
		host     string
		port     uint
		wsURL    string
		logFile  string
		logLevel string
		seed     uint64
		attack   time.Duration
	)
	flag.StringVar(&mode, "transport", "enet", "enet or ws")
	flag.StringVar(&host, "host", "127.0.0.1", "enet server host")
	flag.UintVar(&port, "port", 5001, "enet server udp port")
	flag.StringVar(&wsURL, "ws", "ws://127.0.0.1:8080/ws", "websocket server url")
	flag.StringVar(&logFile, "log", "", "log file path; empty logs to stderr only")
	flag.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flag.Uint64Var(&seed, "seed", uint64(time.Now().UnixNano()), "wander seed")
	flag.DurationVar(&attack, "attack-every", 700*time.Millisecond, "attack interval; negative disables attacks")
	flag.Parse()

	if err := logging.Init(logging.Options{File: logFile, Level: logLevel, Stderr: true}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()
	log := logging.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		conn transport.Client
		err  error
	)
	switch mode {
	case "enet":
		conn, err = enet.Dial(host, uint16(port), log)
	case "ws":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		conn, err = ws.Dial(dialCtx, wsURL, log)
		cancel()
	default:
		err = fmt.Errorf("unknown transport %q", mode)
	}
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	log.Infof("connecting via %s", mode)

	b := bot.New(client.NewSync(conn, log), bot.Options{Seed: seed, AttackEvery: attack, Log: log})
	if err := b.Run(ctx); err != nil {
		log.Fatalf("client stopped: %v", err)
	}
	log.Info("client exited")
}
