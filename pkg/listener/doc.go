/*
Package listener implements the meshrelay ingestion loop.

A Listener owns one UDP socket. A single goroutine reads datagrams and
hands each one to the Pipeline, which finishes before the next read:

	ReadFrom ──▶ Decode ──▶ store filter ──▶ Store.Insert
	                   └──▶ Router.Route ──▶ Renderer ──▶ Sender.Send

Packets are processed in arrival order with no worker pool and no
backpressure; when delivery is slow the kernel receive buffer absorbs the
burst or drops datagrams.

Per-packet failures never stop the loop. Undecodable datagrams are logged
and counted, a failed insert does not prevent forwarding, and a failed
delivery is a dropped notification.

Canceling the context passed to Run closes the socket, which unblocks the
pending read; Run then returns nil.
*/
package listener
