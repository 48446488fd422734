// Package standard builds object stores on the aws-sdk-go-v2 S3 client.
//
// The standard transport offers the finest timeout control: a whole-call
// timeout, a per-attempt timeout and per-call metric publication, all
// installed as smithy middleware on every operation.
package standard
