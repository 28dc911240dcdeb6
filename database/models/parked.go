// Copyright 2025 Flow State Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package models

// ParkedEvent holds an event that exhausted its retry budget. Parked events
// are excluded from normal processing and replayed manually via the replay
// command.
type ParkedEvent struct {
	ID              uint   `gorm:"primarykey"`
	ChainID         uint64 `gorm:"index:idx_parked_event_source"`
	ContractAddress string `gorm:"index:idx_parked_event_source;size:42"`
	ContractKind    string `gorm:"size:16"`
	EventName       string `gorm:"size:80"`
	BlockNumber     uint64
	LogIndex        uint64
	TxHash          string `gorm:"size:66"`
	Timestamp       int64

	// Original event args, JSON-encoded
	Payload []byte

	LastError string
	Attempts  uint
	ParkedAt  int64
	Replayed  bool `gorm:"index;default:false"`
}

func (ParkedEvent) TableName() string {
	return "parked_event"
}
