// Package telemetry encodes a committed cycle into the MQTT messages read by
// the bay dashboards. Encoding is pure; transports live in infra/mqtt.
package telemetry

import (
	"encoding/json"
	"fmt"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// DefaultPrefix is prepended to every topic.
const DefaultPrefix = "esp32/output/"

// Topic suffixes below the prefix.
const (
	TopicNeed          = "powergrid/need"
	TopicBatteryPark   = "powergrid/batteryPark"
	TopicDischarging   = "powergrid/decharging" // wire name kept from the panel firmware
	TopicCharging      = "powergrid/charging"
	TopicParkingStatus = "parking_status"
	TopicBattery       = "battery"
	topicParking       = "parking_%d"
)

// Message is one outbound telemetry record.
type Message struct {
	Channel string
	Topic   string
	Payload []byte
}

type ownerMessage struct {
	Owner   string `json:"owner"`
	Message int64  `json:"message"`
}

type parkingMessage struct {
	Owner         string `json:"owner"`
	Amount        int    `json:"amount"`
	TimeParked    int    `json:"timeParked"`
	BatteryStatus int64  `json:"battery_status"`
}

// Encoder builds messages from snapshots.
type Encoder struct {
	prefix string
	unit   model.Energy
}

// NewEncoder returns an encoder writing below prefix. Battery status is
// reported in whole units of size unit.
func NewEncoder(prefix string, unit model.Energy) *Encoder {
	if unit <= 0 {
		unit = 3600
	}
	return &Encoder{prefix: prefix, unit: unit}
}

// Encode returns every message of a cycle in a stable order: grid figures,
// per-slot discharge and charge status, parking records, occupancy and the
// demand reading.
func (e *Encoder) Encode(s model.Snapshot) ([]Message, error) {
	msgs := make([]Message, 0, 4+3*len(s.Slots))
	add := func(channel, topic string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", channel, err)
		}
		msgs = append(msgs, Message{Channel: channel, Topic: e.prefix + topic, Payload: b})
		return nil
	}

	if err := add("grid.need", TopicNeed, ownerMessage{"grid", int64(s.Residual)}); err != nil {
		return nil, err
	}
	if err := add("grid.batteryPark", TopicBatteryPark, ownerMessage{"grid", int64(s.TotalDischarged)}); err != nil {
		return nil, err
	}
	for _, v := range s.Slots {
		owner := "standby"
		if v.Mode == model.ModeDischarging {
			owner = "discharge"
		}
		if err := add("grid.discharging", TopicDischarging, ownerMessage{owner, int64(v.ID.Number())}); err != nil {
			return nil, err
		}
	}
	for _, v := range s.Slots {
		owner := "standby"
		if v.Mode == model.ModeCharging {
			owner = "charge"
		}
		if err := add("grid.charging", TopicCharging, ownerMessage{owner, int64(v.ID.Number())}); err != nil {
			return nil, err
		}
	}
	for _, v := range s.Slots {
		pm := parkingMessage{
			Owner:         fmt.Sprintf("button_%d", v.ID.Number()),
			TimeParked:    v.ParkedDuration,
			BatteryStatus: v.ChargeLevel.Units(e.unit),
		}
		if v.Occupied {
			pm.Amount = 1
		}
		if err := add("parking", fmt.Sprintf(topicParking, v.ID.Number()), pm); err != nil {
			return nil, err
		}
	}
	if err := add("parking_status", TopicParkingStatus, ownerMessage{"parking_status", int64(s.OccupiedCount)}); err != nil {
		return nil, err
	}
	if err := add("battery", TopicBattery, ownerMessage{"pot_meter", int64(s.Demand)}); err != nil {
		return nil, err
	}
	return msgs, nil
}
