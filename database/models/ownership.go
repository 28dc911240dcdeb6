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

// TokenOwnership tracks the current owner of one curation token. The primary
// row and the owner-bucket index row below are always written in the same
// transaction.
type TokenOwnership struct {
	ID            uint   `gorm:"primarykey"`
	ChainID       uint64 `gorm:"uniqueIndex:idx_token_ownership_scope"`
	TokenContract string `gorm:"uniqueIndex:idx_token_ownership_scope;size:42"`
	TokenID       uint64 `gorm:"uniqueIndex:idx_token_ownership_scope"`

	Owner string `gorm:"index;size:42"`

	// Sequencing cursor for transfer events on this token
	AppliedBlock    uint64
	AppliedLogIndex uint64
}

func (TokenOwnership) TableName() string {
	return "token_ownership"
}

// OwnerTokenIndex is the reverse-lookup bucket: all rows sharing
// (chain, contract, owner) form that owner's token-id set. A token id appears
// in exactly one owner's bucket at any time.
type OwnerTokenIndex struct {
	ID            uint   `gorm:"primarykey"`
	ChainID       uint64 `gorm:"uniqueIndex:idx_owner_token_scope;index:idx_owner_bucket"`
	TokenContract string `gorm:"uniqueIndex:idx_owner_token_scope;index:idx_owner_bucket;size:42"`
	Owner         string `gorm:"index:idx_owner_bucket;size:42"`
	TokenID       uint64 `gorm:"uniqueIndex:idx_owner_token_scope"`
}

func (OwnerTokenIndex) TableName() string {
	return "owner_token_index"
}
