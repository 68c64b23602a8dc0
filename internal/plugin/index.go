// Package plugin provides JavaScript output formatters for RPC methods.
//
// Plugins are JavaScript files loaded from a directory at startup.
// Each plugin must define:
//   - A @method directive naming the RPC method whose result it formats
//   - A format(result) function returning the formatted value
//
// Example plugin:
//
//	// @method eth_getBalance
//	function format(result) {
//	    return utils.hexToNumber(result);
//	}
//
// Every call runs in a fresh runtime with console.* and utils.* bound.
// A thrown error or a timeout becomes the formatter's error.
package plugin
