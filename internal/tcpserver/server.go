package tcpserver

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gnss-gateway/internal/config"
)

// Handler 处理一条已接受的连接，返回即视为连接结束
type Handler func(ctx context.Context, conn net.Conn)

// Server 字节流接入服务：ser2net 之类的桥把串口数据转发到这里。
// 只负责接受、限流与生命周期；字节的解析交给 Handler。
type Server struct {
	cfg       cfgpkg.TCPConfig
	handler   Handler
	logger    *zap.Logger
	limiter   *ConnectionLimiter
	ipLimiter *IPRateLimiter

	ln    net.Listener
	wg    sync.WaitGroup
	stopC chan struct{}

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	accepted atomic.Int64
	rejected atomic.Int64
}

// New 创建接入服务
func New(cfg cfgpkg.TCPConfig, handler Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		handler:   handler,
		logger:    logger,
		limiter:   NewConnectionLimiter(cfg.MaxConnections),
		ipLimiter: NewIPRateLimiter(cfg.RatePerIP, cfg.BurstPerIP),
		stopC:     make(chan struct{}),
		conns:     make(map[net.Conn]struct{}),
	}
}

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("tcp ingest listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("max_connections", s.limiter.MaxConnections()))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stopC:
				return
			case <-ctx.Done():
				return
			default:
			}
			// 短暂错误等待后重试
			time.Sleep(50 * time.Millisecond)
			continue
		}

		ip := remoteIP(conn)
		if !s.ipLimiter.Allow(ip) {
			s.rejected.Add(1)
			s.logger.Debug("connection rate limited", zap.String("ip", ip))
			_ = conn.Close()
			continue
		}
		if !s.limiter.TryAcquire() {
			s.rejected.Add(1)
			s.logger.Warn("connection limit reached",
				zap.String("remote_addr", conn.RemoteAddr().String()),
				zap.Int("max_connections", s.limiter.MaxConnections()))
			_ = conn.Close()
			continue
		}

		s.accepted.Add(1)
		s.trackConn(conn, true)
		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer s.limiter.Release()
			defer s.trackConn(c, false)
			defer c.Close()
			s.handler(ctx, c)
		}(conn)
	}
}

func (s *Server) trackConn(c net.Conn, add bool) {
	s.connsMu.Lock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
	s.connsMu.Unlock()
}

// Shutdown 优雅关闭：先停监听排空连接，ctx 截止后强关存活连接
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopC)
	if s.ln != nil {
		_ = s.ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.connsMu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.connsMu.Unlock()
		<-done
		return ctx.Err()
	}
}

// Stats 获取统计信息
func (s *Server) Stats() ServerStats {
	return ServerStats{
		Accepted: s.accepted.Load(),
		Rejected: s.rejected.Load(),
		Limiter:  s.limiter.Stats(),
	}
}

// ServerStats 接入服务统计信息
type ServerStats struct {
	Accepted int64        `json:"accepted"`
	Rejected int64        `json:"rejected"`
	Limiter  LimiterStats `json:"limiter"`
}

// Addr 实际监听地址（测试里用 :0 随机端口）
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.cfg.Addr
	}
	return s.ln.Addr().String()
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}
