// Package collect implements the collection registry service.
//
// The registry tracks two kinds of jobs per currency pair: REST pull tasks,
// which carry an interval in seconds, and streaming subscriptions, which do
// not. GET /v1/collect/status merges both into
//
//	{"code":200,"msg":"Information about running tasks","data":{"BTC":{"USD":{"from":"BTC","to":"USD","interval":60}}}}
//
// with data set to null when nothing is collected. Symbols are stored in
// upper case.
package collect
