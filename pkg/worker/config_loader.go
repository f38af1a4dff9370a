package worker

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type appConfig struct {
	Watermill SubscriberConfig `yaml:"watermill"`
	Pipeline  struct {
		Topic string `yaml:"topic"`
	} `yaml:"pipeline"`
	Intake struct {
		Topic string `yaml:"topic"`
	} `yaml:"intake"`
}

type rulesConfig struct {
	Rules []struct {
		Emit interface{} `yaml:"emit"`
	} `yaml:"rules"`
}

// LoadSubscriberConfig reads the subscriber section of the shared YAML config.
func LoadSubscriberConfig(path string) (SubscriberConfig, error) {
	var cfg appConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg.Watermill, err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg.Watermill, err
	}
	applySubscriberDefaults(&cfg.Watermill)
	return cfg.Watermill, nil
}

func applySubscriberDefaults(cfg *SubscriberConfig) {
	if cfg.Driver == "" && len(cfg.Drivers) == 0 {
		cfg.Driver = "gochannel"
	}
	if cfg.GoChannel.OutputChannelBuffer == 0 {
		cfg.GoChannel.OutputChannelBuffer = 64
	}
	if cfg.NATS.ClientIDSuffix == "" {
		cfg.NATS.ClientIDSuffix = "-worker"
	}
}

// LoadPipelineTopic reads the topic the pipeline worker consumes: the
// pipeline topic when set, the intake topic otherwise.
func LoadPipelineTopic(path string) (string, error) {
	var cfg appConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return "", err
	}
	topic := strings.TrimSpace(cfg.Pipeline.Topic)
	if topic == "" {
		topic = strings.TrimSpace(cfg.Intake.Topic)
	}
	if topic == "" {
		topic = "events.raw"
	}
	return topic, nil
}

// LoadTopicsFromConfig collects the alert topics the rules emit, for workers
// that consume alerts rather than raw events.
func LoadTopicsFromConfig(path string) ([]string, error) {
	var cfg rulesConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(cfg.Rules))
	seen := make(map[string]struct{}, len(cfg.Rules))
	add := func(topic string) {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			return
		}
		if _, ok := seen[topic]; ok {
			return
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	for _, rule := range cfg.Rules {
		switch emit := rule.Emit.(type) {
		case string:
			add(emit)
		case []interface{}:
			for _, item := range emit {
				if topic, ok := item.(string); ok {
					add(topic)
				}
			}
		}
	}
	return topics, nil
}
