package probe

import (
	"FlowFeatures/internal/config"
	"FlowFeatures/internal/model"
	"log"

	"github.com/nats-io/nats.go"
)

// PacketHandler processes a received descriptor.
type PacketHandler func(info *model.PacketInfo)

// Subscriber is responsible for subscribing to a NATS subject and decoding messages.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the configured subject. NATS invokes the handler from a
// single goroutine per subscription, so descriptors arrive in publish order.
func (s *Subscriber) Start(handler PacketHandler) error {
	sub, err := s.nc.Subscribe(s.subject, decodeMessage(handler))
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for messages...", s.subject)
	return nil
}

func decodeMessage(handler PacketHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		info, err := UnmarshalPacket(msg.Data)
		if err != nil {
			log.Printf("Error decoding packet descriptor: %v", err)
			return
		}
		handler(info)
	}
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
