package manager

import (
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/engine/feature"
	"FlowFeatures/internal/engine/flowtable"
	"FlowFeatures/internal/engine/protocol"
	"FlowFeatures/internal/metrics"
	"FlowFeatures/internal/model"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/uuid"
)

var (
	// ErrNotStopped is returned by Export while ingestion may still be running.
	ErrNotStopped = errors.New("session must be stopped before export")
	// ErrStopped is returned when a packet is offered after Stop.
	ErrStopped = errors.New("session is stopped")
)

// Counters is a point-in-time view of a session's progress.
type Counters struct {
	SessionID string
	Label     int
	Raw       uint64
	Used      uint64
	Flows     int
	StartedAt time.Time
	StoppedAt time.Time
}

// ExportResult describes one completed export.
type ExportResult struct {
	Counters
	Rows         int
	TotalPackets uint64
	TotalBytes   uint64
	Records      []model.FlowRecord
}

// Session owns one flow table for the length of a capture. Packets are
// decoded on the caller's goroutine and handed over a bounded channel to a
// single worker, which is the table's only writer.
type Session struct {
	id       string
	label    int
	table    *flowtable.Table
	writers  []model.Writer
	metrics  *metrics.SessionMetrics
	progress time.Duration

	packetChannel chan *model.PacketInfo
	workerWg      sync.WaitGroup
	done          chan struct{}
	progressWg    sync.WaitGroup

	// mu guards closed against concurrent sends and Stop.
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once

	raw   atomic.Uint64
	used  atomic.Uint64
	flows atomic.Int64

	startedAt time.Time
	stoppedAt time.Time
}

// NewSession creates a session labelled with cfg.Capture.Label. m may be nil.
func NewSession(cfg *config.Config, m *metrics.SessionMetrics, writers ...model.Writer) *Session {
	size := cfg.Engine.SizeOfPacketChannel
	if size < 1 {
		size = 1
	}
	return &Session{
		id:            uuid.NewString(),
		label:         cfg.Capture.Label,
		table:         flowtable.New(),
		writers:       writers,
		metrics:       m,
		progress:      cfg.ProgressInterval(),
		packetChannel: make(chan *model.PacketInfo, size),
		done:          make(chan struct{}),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// AddWriter registers another destination for Export.
func (s *Session) AddWriter(w model.Writer) {
	s.writers = append(s.writers, w)
}

// Start launches the worker and, if configured, the progress logger.
func (s *Session) Start() {
	s.startedAt = time.Now()

	s.workerWg.Add(1)
	go s.worker()

	if s.progress > 0 {
		s.progressWg.Add(1)
		go s.runProgress()
	}
	log.Printf("Session %s started with label %d.", s.id, s.label)
}

// HandlePacket decodes a captured packet and queues it for aggregation.
// Packets that are not TCP/UDP over IP are counted as raw and dropped.
func (s *Session) HandlePacket(packet gopacket.Packet) error {
	s.countRaw()
	info, err := protocol.ParsePacket(packet)
	if err != nil {
		return nil
	}
	return s.enqueue(info)
}

// Submit queues an already decoded descriptor, as delivered by a remote probe.
func (s *Session) Submit(info *model.PacketInfo) error {
	s.countRaw()
	if info == nil {
		return nil
	}
	if p := info.FiveTuple.Protocol; p != model.ProtocolTCP && p != model.ProtocolUDP {
		return nil
	}
	return s.enqueue(info)
}

func (s *Session) countRaw() {
	s.raw.Add(1)
	if s.metrics != nil {
		s.metrics.RawPackets.Inc()
	}
}

func (s *Session) enqueue(info *model.PacketInfo) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStopped
	}
	s.packetChannel <- info
	return nil
}

func (s *Session) worker() {
	defer s.workerWg.Done()
	for info := range s.packetChannel {
		s.table.Observe(info)
		s.used.Add(1)
		s.flows.Store(int64(s.table.Len()))
		if s.metrics != nil {
			s.metrics.UsedPackets.Inc()
			s.metrics.Flows.Set(float64(s.table.Len()))
		}
	}
}

func (s *Session) runProgress() {
	defer s.progressWg.Done()
	ticker := time.NewTicker(s.progress)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c := s.Stats()
			log.Printf("Raw: %d | Used(TCP/UDP): %d | Flows: %d", c.Raw, c.Used, c.Flows)
		case <-s.done:
			return
		}
	}
}

// Stop closes the queue and waits until every queued packet has been
// aggregated. After Stop returns the flow table is no longer written.
// It is safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		log.Println("Session stopping...")
		s.mu.Lock()
		s.closed = true
		close(s.packetChannel)
		s.mu.Unlock()

		s.workerWg.Wait()
		close(s.done)
		s.progressWg.Wait()
		s.stoppedAt = time.Now()

		c := s.Stats()
		log.Printf("Session stopped. Raw packets seen: %d, used TCP/UDP packets: %d, flows created: %d", c.Raw, c.Used, c.Flows)
	})
}

// Stats returns the current counters. It is safe to call at any time.
func (s *Session) Stats() Counters {
	return Counters{
		SessionID: s.id,
		Label:     s.label,
		Raw:       s.raw.Load(),
		Used:      s.used.Load(),
		Flows:     int(s.flows.Load()),
		StartedAt: s.startedAt,
		StoppedAt: s.stoppedAt,
	}
}

// Records derives one feature row per flow. Only valid after Stop.
func (s *Session) Records() ([]model.FlowRecord, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if !closed {
		return nil, ErrNotStopped
	}
	// Stop may still be draining when called from another goroutine.
	s.workerWg.Wait()

	records := make([]model.FlowRecord, 0, s.table.Len())
	s.table.ForEach(func(key model.FlowKey, st *model.FlowStats) {
		records = append(records, feature.Derive(key, st, s.label))
	})
	return records, nil
}

// Export derives the feature rows and hands them to every writer. A failing
// writer does not stop the others; all errors are returned together.
func (s *Session) Export(ctx context.Context) (*ExportResult, error) {
	records, err := s.Records()
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		Counters: s.Stats(),
		Rows:     len(records),
		Records:  records,
	}
	for i := range records {
		result.TotalPackets += records[i].Packets
		result.TotalBytes += records[i].Bytes
	}

	var errs []error
	for _, w := range s.writers {
		if err := w.Write(ctx, records); err != nil {
			errs = append(errs, fmt.Errorf("writer %s: %w", w.Name(), err))
			continue
		}
		if s.metrics != nil {
			s.metrics.RowsExported.WithLabelValues(w.Name()).Add(float64(len(records)))
		}
	}
	return result, errors.Join(errs...)
}

// Advisory returns operator hints when the session aggregated nothing.
func (c Counters) Advisory() []string {
	if c.Used > 0 {
		return nil
	}
	return []string{
		"No TCP/UDP packets were captured.",
		"Generate traffic while capturing (open a website, run a download).",
		"Choose the correct Wi-Fi/Ethernet device index.",
		"Run with capture privileges (root, CAP_NET_RAW, or Administrator).",
	}
}
