package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"blitz/bot"
	"blitz/client"
	"blitz/logging"
	"blitz/server"
	"blitz/transport"
	"blitz/transport/enet"
	"blitz/transport/memory"
	"blitz/transport/ws"
)

// blitz 服务端入口：权威模拟循环 + 网络传输 + 管理接口
func main() {
	var (
		addr     string
		port     uint
		mode     string
		logFile  string
		logLevel string
		tps      int
		demoBots int
	)
	flag.StringVar(&addr, "addr", ":8080", "http listen address for admin, metrics and websocket, e.g. :8080")
	flag.UintVar(&port, "port", 5001, "udp port for the enet transport")
	flag.StringVar(&mode, "transport", "enet", "client transport: enet, ws or memory")
	flag.StringVar(&logFile, "log", "blitz-server.log", "log file path (rotated)")
	flag.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flag.IntVar(&tps, "tps", 60, "simulation ticks per second")
	flag.IntVar(&demoBots, "bots", 3, "in-process bots when -transport=memory")
	flag.Parse()

	// 使用第三方 zap 日志库写入日志文件（带滚动），同时输出到终端
	if err := logging.Init(logging.Options{File: logFile, Level: logLevel, Stderr: true}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()
	log := logging.Log

	tuning := server.DefaultTuning()
	tuning.TicksPerSecond = tps
	store, err := server.NewTuningStore(tuning)
	if err != nil {
		log.Fatalf("tuning: %v", err)
	}
	metrics := &server.Metrics{}

	mux := http.NewServeMux()
	server.NewAdmin(store, metrics, log).Routes(mux)

	var (
		tr      transport.Server
		network *memory.Network
	)
	switch mode {
	case "enet":
		host, err := enet.Listen(enet.Options{Port: uint16(port), Log: log})
		if err != nil {
			log.Fatalf("enet listen: %v", err)
		}
		tr = host
		log.Infof("enet transport listening on udp :%d", port)
	case "ws":
		wsServer := ws.NewServer(log)
		mux.Handle("/ws", wsServer)
		tr = wsServer
		log.Infof("websocket transport mounted at %s/ws", addr)
	case "memory":
		network = memory.NewNetwork()
		tr = network.Server()
		log.Infof("in-process demo with %d bots", demoBots)
	default:
		log.Fatalf("unknown transport %q", mode)
	}
	defer tr.Close()

	world := server.NewWorld(tr, store, metrics, log)
	loop := server.NewLoop(world)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	// 优雅退出（Ctrl+C）
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return loop.Run(ctx) })
	g.Go(func() error {
		log.Infof("blitz admin listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	if network != nil {
		for i := 0; i < demoBots; i++ {
			conn, err := network.Dial()
			if err != nil {
				log.Fatalf("dial bot: %v", err)
			}
			b := bot.New(client.NewSync(conn, log.With("bot", i)), bot.Options{Seed: uint64(i + 1), Log: log.With("bot", i)})
			g.Go(func() error { return b.Run(ctx) })
		}
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
