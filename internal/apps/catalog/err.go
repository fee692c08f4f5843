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

package catalog

import "errors"

// Error definitions for server catalog operations.
var (
	// ErrCatalogEmpty indicates no server list is available from either cache or the vendor API.
	ErrCatalogEmpty = errors.New("catalog: no server list available")
	// ErrSelectionNotFound indicates no server matches the requested selection.
	ErrSelectionNotFound = errors.New("catalog: no servers match the selection")
	// ErrNoConnectivity indicates the network connectivity pre-check failed.
	ErrNoConnectivity = errors.New("catalog: no network connectivity")
	// ErrFetchFailed indicates the vendor API could not be reached after all retries.
	ErrFetchFailed = errors.New("catalog: failed to fetch server list")
	// ErrCacheInvalid indicates the cache file is missing, expired or has a version mismatch.
	ErrCacheInvalid = errors.New("catalog: cache is missing or expired")
)

// Error codes for server catalog operations.
const (
	ErrCodeCatalogEmpty      = 4001
	ErrCodeSelectionNotFound = 4002
	ErrCodeNoConnectivity    = 4003
	ErrCodeFetchFailed       = 4004
	ErrCodeCacheInvalid      = 4005
)
