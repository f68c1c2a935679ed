package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/duskresolve/duskresolve/internal/dnswire"
	"github.com/duskresolve/duskresolve/internal/pool"
)

// DefaultUDPWorkers is the default size of the datagram-processing worker
// pool, scaled down from the teacher's 1024-per-socket default since this
// server runs a single socket rather than one per CPU core.
const DefaultUDPWorkers = 64

var udpBufferPool = pool.New(func() *[]byte {
	buf := make([]byte, dnswire.MaxIncomingDNSMessageSize)
	return &buf
})

// UDPServer answers DNS queries sent as single UDP datagrams. One receive
// loop reads packets off the socket and hands them to a bounded worker
// pool; a worker whose query doesn't parse drops the packet silently
// rather than answering it.
type UDPServer struct {
	Handler *QueryHandler
	Workers int // default DefaultUDPWorkers

	conn *net.UDPConn
	wg   sync.WaitGroup
}

type udpPacket struct {
	bufPtr *[]byte
	n      int
	peer   *net.UDPAddr
}

// Run listens on addr and serves until ctx is cancelled.
func (s *UDPServer) Run(ctx context.Context, addr string) error {
	if s.Workers <= 0 {
		s.Workers = DefaultUDPWorkers
	}

	conn, err := listenUDPReusable(addr)
	if err != nil {
		return err
	}
	s.conn = conn

	ch := make(chan udpPacket, s.Workers*2)

	s.wg.Go(func() { s.recvLoop(ctx, ch) })
	for range s.Workers {
		s.wg.Go(func() { s.workerLoop(ctx, ch) })
	}

	<-ctx.Done()
	return s.Stop(5 * time.Second)
}

func (s *UDPServer) recvLoop(ctx context.Context, out chan<- udpPacket) {
	for {
		bufPtr := udpBufferPool.Get()
		n, peer, err := s.conn.ReadFromUDP(*bufPtr)
		if err != nil {
			udpBufferPool.Put(bufPtr)
			return
		}

		select {
		case out <- udpPacket{bufPtr, n, peer}:
		default:
			udpBufferPool.Put(bufPtr)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *UDPServer) workerLoop(ctx context.Context, in <-chan udpPacket) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-in:
			if !ok {
				return
			}
			s.handlePacket(ctx, p)
		}
	}
}

func (s *UDPServer) handlePacket(ctx context.Context, p udpPacket) {
	defer udpBufferPool.Put(p.bufPtr)

	if s.Handler == nil {
		return
	}
	resp := s.Handler.Handle(ctx, "udp", p.peer.IP.String(), (*p.bufPtr)[:p.n])
	if len(resp) == 0 {
		return
	}
	_, _ = s.conn.WriteToUDP(resp, p.peer)
}

// Stop closes the socket and waits up to timeout for in-flight goroutines
// to exit.
func (s *UDPServer) Stop(timeout time.Duration) error {
	if s.conn != nil {
		_ = s.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("udp server: timeout waiting for goroutines to exit")
	}
}

// listenUDPReusable opens a UDP socket with SO_REUSEPORT set, so a
// replacement process can bind the same address during a restart without
// waiting on the old socket to close.
func listenUDPReusable(addr string) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				ctrlErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp", addr)
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}
