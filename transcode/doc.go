// Package transcode converts SML values to and from YAML and CBOR
// documents, so values can be written by hand and fed to an encoder, or
// decoded payloads can be inspected with ordinary tools.
//
// A document is a list of typed nodes:
//
//	values:
//	  - type: u8
//	    value: "16"
//	  - type: struct
//	    fields:
//	      - {type: char, value: "a"}
//	      - {type: option, elem: i16}
//
// CBOR documents use Core Deterministic Encoding.
package transcode
