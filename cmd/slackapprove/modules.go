package main

// Compiled modules. Each registers itself with the core registry in init.
import (
	_ "github.com/flemzord/slackapprove/internal/gateway"
	_ "github.com/flemzord/slackapprove/modules/channel/slack"
	_ "github.com/flemzord/slackapprove/modules/ledger/memory"
	_ "github.com/flemzord/slackapprove/modules/ledger/redis"
	_ "github.com/flemzord/slackapprove/modules/ledger/sqlite"
)
