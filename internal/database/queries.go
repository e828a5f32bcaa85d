/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	// Account queries
	queryGetAccounts = `
		SELECT name, pin, account_number, balance
		FROM accounts
		ORDER BY name`

	queryInsertAccount = `
		INSERT INTO accounts (name, pin, account_number, balance) VALUES (?, ?, ?, ?)`

	// Debt queries (owed_to / owed_from rows)
	queryGetDebts = `
		SELECT account, counterparty, direction, amount
		FROM debts`

	queryInsertDebt = `
		INSERT INTO debts (id, account, counterparty, direction, amount) VALUES (?, ?, ?, ?, ?)`

	// Notification queries
	queryGetNotifications = `
		SELECT account, from_account, amount
		FROM notifications
		ORDER BY account, position`

	queryInsertNotification = `
		INSERT INTO notifications (id, account, from_account, amount, position) VALUES (?, ?, ?, ?, ?)`

	// History queries
	queryGetHistory = `
		SELECT account, entry
		FROM history
		ORDER BY account, position`

	queryInsertHistory = `
		INSERT INTO history (id, account, position, entry) VALUES (?, ?, ?, ?)`

	// Snapshot replace
	queryDeleteAccounts      = `DELETE FROM accounts`
	queryDeleteDebts         = `DELETE FROM debts`
	queryDeleteNotifications = `DELETE FROM notifications`
	queryDeleteHistory       = `DELETE FROM history`
)
