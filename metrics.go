package mpcnet

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

var (
	// MetricMeshConnEstCount counts every mesh connection this party
	// established, whether it dialed or accepted it.
	MetricMeshConnEstCount   = []string{"mpcnet", "mesh", "connection", "established", "count"}
	MetricMeshDialRetryCount = []string{"mpcnet", "mesh", "dial", "retry", "count"}
	MetricExchangeOutBytes   = []string{"mpcnet", "exchange", "out", "bytes"}
	MetricExchangeInBytes    = []string{"mpcnet", "exchange", "in", "bytes"}
	MetricBroadcastCount     = []string{"mpcnet", "broadcast", "count"}
	MetricKingExchangeCount  = []string{"mpcnet", "king", "exchange", "count"}
)

type TelemetryLabel string

var (
	LabelParty    TelemetryLabel = "party"
	LabelPeer     TelemetryLabel = "peer"
	LabelPeerAddr TelemetryLabel = "peer_addr"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}
