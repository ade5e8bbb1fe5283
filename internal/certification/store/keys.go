package store

import (
	id "harvestcert/pkg/domain"
)

// World-state key layout. Prefixes are stable: changing them orphans data
// already persisted by durable backends.
const (
	certificatePrefix = "CERT_"
	telemetryPrefix   = "TELEMETRY_"
	certifierPrefix   = "CERTIFIER_"
	labPrefix         = "LAB_"
	facilityPrefix    = "FACILITY_"
	paramsKey         = "PARAMS"
	statsKey          = "STATS"
	ownerKey          = "OWNER"
)

func certificateKey(b id.BatchID) string { return certificatePrefix + string(b) }
func telemetryKey(b id.BatchID) string { return telemetryPrefix + string(b) }
func certifierKey(who id.Identity) string { return certifierPrefix + string(who) }
func labKey(lab id.LabName) string { return labPrefix + string(lab) }
func facilityKey(f id.FacilityID) string { return facilityPrefix + string(f) }
