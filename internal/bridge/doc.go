// Package bridge implements the com.conieng.HyperIsle1 D-Bus interface,
// the serialized ingress for external event producers.
package bridge
