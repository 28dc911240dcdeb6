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

package database

import (
	"fmt"
	"time"

	"github.com/flowstate-labs/flowd/database/models"
	"gorm.io/gorm"
)

// ParkEvent stores an event that exhausted its retry budget for later
// manual replay
func (d *Database) ParkEvent(parked *models.ParkedEvent, txn *gorm.DB) error {
	db := d.txnOrDB(txn)
	if parked.ParkedAt == 0 {
		parked.ParkedAt = time.Now().Unix()
	}
	if err := db.Create(parked).Error; err != nil {
		return fmt.Errorf("failed to park event: %w", err)
	}
	if d.metrics != nil {
		d.metrics.parkedEvents.Inc()
	}
	return nil
}

// GetParkedEvents returns unreplayed parked events, oldest first
func (d *Database) GetParkedEvents(
	limit int,
	txn *gorm.DB,
) ([]models.ParkedEvent, error) {
	db := d.txnOrDB(txn)
	var ret []models.ParkedEvent
	query := db.Where("replayed = ?", false).Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	result := query.Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// MarkParkedEventReplayed flags a parked event as successfully replayed
func (d *Database) MarkParkedEventReplayed(id uint, txn *gorm.DB) error {
	db := d.txnOrDB(txn)
	result := db.Model(&models.ParkedEvent{}).
		Where("id = ?", id).
		Update("replayed", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark parked event replayed: %w", result.Error)
	}
	if d.metrics != nil && result.RowsAffected > 0 {
		d.metrics.parkedEvents.Dec()
	}
	return nil
}
