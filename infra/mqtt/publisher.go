package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/chargesim/core/factory"
	coremetrics "github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/infra/logger"
)

func init() {
	_ = coremetrics.RegisterSink("mqtt", func(conf map[string]any) (coremetrics.Sink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPublisher(c)
	})
}

// RunReport is the payload published for a run.
type RunReport struct {
	RunID                 string    `json:"run_id"`
	Context               string    `json:"context"`
	BatchID               string    `json:"batch_id,omitempty"`
	Trial                 int       `json:"trial,omitempty"`
	Chargepoints          int       `json:"chargepoints"`
	PowerKW               float64   `json:"power_kw"`
	Days                  int       `json:"days"`
	IntervalMinutes       int       `json:"interval_minutes"`
	TotalEnergyKWh        float64   `json:"total_energy_kwh"`
	MaxPowerKW            float64   `json:"max_power_kw"`
	MaxTheoreticalPowerKW float64   `json:"max_theoretical_power_kw"`
	ConcurrencyFactor     float64   `json:"concurrency_factor"`
	Sessions              int       `json:"sessions"`
	Timestamp             time.Time `json:"timestamp"`
}

// TrialsReport is the payload published for a trial batch.
type TrialsReport struct {
	BatchID   string                     `json:"batch_id"`
	Trials    int                        `json:"trials"`
	Mean      float64                    `json:"mean"`
	StdDev    float64                    `json:"stddev"`
	Min       float64                    `json:"min"`
	Max       float64                    `json:"max"`
	Buckets   []coremetrics.FactorBucket `json:"buckets"`
	ElapsedMS int64                      `json:"elapsed_ms"`
	Timestamp time.Time                  `json:"timestamp"`
}

// Publisher is a metrics sink reporting results over MQTT.
type Publisher struct {
	cli pahoClient
	cfg Config
	log logger.Logger
}

// NewPublisher connects to the broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.setDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Publisher{cli: c, cfg: cfg, log: log}, nil
}

// RunTopic is the topic a run is reported on.
func (p *Publisher) RunTopic(runID string) string {
	return fmt.Sprintf("%s/runs/%s", p.cfg.TopicPrefix, runID)
}

// TrialsTopic is the topic batch summaries are reported on.
func (p *Publisher) TrialsTopic() string {
	return p.cfg.TopicPrefix + "/trials"
}

// RecordRun publishes a RunReport. Trial runs are skipped unless
// PublishTrials is set.
func (p *Publisher) RecordRun(ev coremetrics.RunEvent) error {
	if ev.Results == nil {
		return fmt.Errorf("mqtt: run event without results")
	}
	if ev.Context == coremetrics.ContextTrial && !p.cfg.PublishTrials {
		return nil
	}
	r := ev.Results
	return p.publish(p.RunTopic(r.RunID), RunReport{
		RunID:                 r.RunID,
		Context:               ev.Context,
		BatchID:               ev.BatchID,
		Trial:                 ev.Trial,
		Chargepoints:          r.Config.Chargepoints,
		PowerKW:               r.Config.PowerKW,
		Days:                  r.Config.Days,
		IntervalMinutes:       r.Config.IntervalMinutes,
		TotalEnergyKWh:        r.TotalEnergyKWh,
		MaxPowerKW:            r.MaxPowerKW,
		MaxTheoreticalPowerKW: r.MaxTheoreticalPowerKW,
		ConcurrencyFactor:     r.ConcurrencyFactor,
		Sessions:              r.Sessions,
		Timestamp:             ev.Time,
	})
}

// RecordTrialSummary publishes a TrialsReport.
func (p *Publisher) RecordTrialSummary(ev coremetrics.TrialSummaryEvent) error {
	return p.publish(p.TrialsTopic(), TrialsReport{
		BatchID:   ev.BatchID,
		Trials:    ev.Trials,
		Mean:      ev.Mean,
		StdDev:    ev.StdDev,
		Min:       ev.Min,
		Max:       ev.Max,
		Buckets:   ev.Buckets,
		ElapsedMS: ev.Elapsed.Milliseconds(),
		Timestamp: ev.Time,
	})
}

func (p *Publisher) publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.log.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.cfg.backoff() * time.Duration(1<<attempt))
		}
	}
	return publishErr
}

// Close gracefully closes the MQTT connection.
func (p *Publisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
