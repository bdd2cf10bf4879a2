// Package events publishes subscription lifecycle events to Kafka so
// downstream consumers (analytics, the email pipeline) see billing changes
// without polling the database.
//
// Publishing is best effort: a broker outage never fails a webhook or sync
// run, it only logs. The database remains the record of truth.
package events
