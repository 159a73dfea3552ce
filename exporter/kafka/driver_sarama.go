package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"rumbridge/exporter"
	"rumbridge/internal/logging"
	"rumbridge/internal/telemetry"
)

var ErrClosed = errors.New("kafka-exporter: closed")

type Config struct {
	Brokers      []string
	Topic        string
	RequiredAcks int16 // 0,1,-1
	Version      string
	ClientID     string
}

type driver struct {
	cfg Config
	p   sarama.AsyncProducer

	mu     sync.RWMutex // guards closed against Input() sends
	closed bool
	wg     sync.WaitGroup
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-exporter: want Config, got %T", c)
	}
	if cfg.Topic == "" {
		return errors.New("kafka-exporter: topic required")
	}

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.RequiredAcks)
	sc.Producer.Return.Errors = true
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return err
		}
		sc.Version = ver
	}
	p, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return err
	}
	d.attach(cfg, p)
	return nil
}

func (d *driver) attach(cfg Config, p sarama.AsyncProducer) {
	d.cfg, d.p = cfg, p
	d.wg.Add(1)
	go d.drainErrors()
}

// Export keys messages by device id so one device's events stay ordered
// within a partition.
func (d *driver) Export(ev *exporter.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka-exporter: encode %s: %w", ev.Type, err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	d.p.Input() <- &sarama.ProducerMessage{
		Topic:     d.cfg.Topic,
		Key:       sarama.StringEncoder(ev.DeviceID),
		Value:     sarama.ByteEncoder(value),
		Timestamp: ev.Timestamp,
	}
	return nil
}

func (d *driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.p.AsyncClose()
	d.wg.Wait()
	return nil
}

func (d *driver) drainErrors() {
	defer d.wg.Done()
	for pe := range d.p.Errors() {
		telemetry.ExportErrors.WithLabelValues("kafka").Inc()
		logging.For("kafka-exporter").Warn("produce failed", "topic", pe.Msg.Topic, "err", pe.Err)
	}
}

func init() { exporter.Register("kafka", func() exporter.Adapter { return &driver{} }) }
