package kafka

import "github.com/segmentio/kafka-go"

// headerCarrier adapts a plain map to the OTel TextMapCarrier so the
// propagator can inject trace context before a publish.
type headerCarrier map[string]string

func (c headerCarrier) Get(k string) string { return c[k] }
func (c headerCarrier) Set(k, v string)     { c[k] = v }

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

func (c headerCarrier) headers() []kafka.Header {
	hs := make([]kafka.Header, 0, len(c))
	for k, v := range c {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}

// messageCarrier reads trace context back out of consumed message
// headers. Extraction only; Set is a no-op.
type messageCarrier []kafka.Header

func (c messageCarrier) Get(k string) string {
	for _, h := range c {
		if h.Key == k {
			return string(h.Value)
		}
	}
	return ""
}

func (c messageCarrier) Set(string, string) {}

func (c messageCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for _, h := range c {
		keys = append(keys, h.Key)
	}
	return keys
}
