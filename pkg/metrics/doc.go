/*
Package metrics provides Prometheus metrics and component health for
meshrelay.

# Metrics

All collectors are registered with the default Prometheus registry at init
and served by Handler():

	meshrelay_packets_received_total            counter
	meshrelay_packets_dropped_total{reason}     counter  reason=encoding|format
	meshrelay_packet_processing_seconds         histogram
	meshrelay_messages_stored_total{type}       counter
	meshrelay_store_errors_total                counter
	meshrelay_last_stored_timestamp_seconds     gauge
	meshrelay_forwards_total{result}            counter  result=delivered|failed|no_match
	meshrelay_render_fallbacks_total            counter
	meshrelay_delivery_duration_seconds         histogram

Durations are measured with Timer:

	timer := metrics.NewTimer()
	ok := client.Send(ctx, text, types.MarkupRichText)
	timer.ObserveDuration(metrics.DeliveryDuration)

# Health

Components report their state with RegisterComponent or UpdateComponent.
The relay uses three components:

	listener   UDP socket bound and receiving
	store      message store open and readable
	telegram   bot self-check result (optional)

GetHealth is unhealthy (503) when listener or store failed and degraded
(200) when only telegram failed. GetReadiness requires listener and store
only, so a Telegram outage does not take the relay out of service. HealthHandler, ReadyHandler and LivenessHandler expose
these as JSON.

The Collector probes the store on an interval, keeping the store component
and the last stored timestamp gauge current.
*/
package metrics
