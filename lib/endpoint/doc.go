// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package endpoint converts between the structured description of a
// procboard server endpoint and its single-string connection form:
//
//	[authorization@]http(s)://hostname:port[/path][/namespace][?auth=token]
//
// Viewers pass connection strings on the command line; [Parse] fills
// in the defaults (http, 127.0.0.1, port 8088) and [Endpoint.String]
// reproduces a canonical string. Parsing an endpoint's own String
// output yields the same semantic fields back.
package endpoint
