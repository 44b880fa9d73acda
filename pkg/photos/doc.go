// Package photos extracts a deduplicated photo gallery from the raw photo
// descriptors of a catalog product.
//
// The source serves one physical photo under several URLs, sizes and
// sometimes IDs. Two candidates are compared with an ordered chain of rules:
//
//  1. SameID: when both sides carry an ID it alone decides
//  2. SameURL: exact string match
//  3. SameNormalizedURL: match once size and crop parameters are removed
//  4. SameFilename: match on the file name without extension or WxH token
//  5. SamePathSuffix: match on the last two path segments
//
// Each rule is a plain function so it can be tested on its own.
package photos
