package handler

import "time"

// timeFormat is the wire format for all timestamps
const timeFormat = time.RFC3339
