// Package mbus owns the Modbus TCP wire contract.
//
// Ownership boundary:
// - MBAP header primitives
// - PDU parse/build for the served function codes
// - exception responses
package mbus
