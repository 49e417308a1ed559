// Package domain models the weather and production records flowing through
// the optimizer.
//
// # Data Sources
//
// Weather readings arrive on the weather-data Kafka topic, published by the
// collector that polls the upstream weather providers. Each message is a typed
// envelope ({"type":"weather_reading","data":{...}}), though unwrapped
// readings from older producers are accepted. Units follow the plant
// convention: °F, %, inHg, mph, inches.
//
// Production events arrive on the production-events topic from the plant
// execution system. Events are read-only to this service: weather context is
// attached alongside an event, never written into it.
//
// # Data Quality
//
// When a weather reading carries no quality_score, one is derived from field
// completeness: the required fields (temperature, humidity, pressure) carry
// 80% of the score and the optional fields (wind_speed, visibility,
// precipitation) the remaining 20%. The score feeds the recommender's
// confidence calculation.
//
// # ID Generation
//
// Production events without an event_id get a deterministic SHA-256 derived
// ID from location|machine|cycle|timestamp|cycle_time. Reprocessing the same
// raw message yields the same ID, so downstream inserts stay idempotent
// (ON CONFLICT DO NOTHING) without distributed coordination.
package domain
