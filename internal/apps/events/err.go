/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package events

import "errors"

// Error definitions for proxy event operations.
var (
	// ErrEventNotFound indicates the requested event record does not exist.
	ErrEventNotFound = errors.New("events: event not found")
	// ErrEventTypeEmpty indicates an event record is missing its type.
	ErrEventTypeEmpty = errors.New("events: event type cannot be empty")
	// ErrInstanceIDEmpty indicates an event record is missing its instance ID.
	ErrInstanceIDEmpty = errors.New("events: instance id cannot be empty")
)

// Error codes for proxy event operations.
const (
	ErrCodeEventNotFound   = 4101
	ErrCodeEventTypeEmpty  = 4102
	ErrCodeInstanceIDEmpty = 4103
)
