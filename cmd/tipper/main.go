// Command tipper exercises the spend-permission lifecycle end to end:
// connect, link a sub-account with an allowance, refresh the remaining
// allowance and send a delegated tip.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/tipcast/tipcast-api/internal/chain"
	"github.com/tipcast/tipcast-api/internal/client/walletapi"
	"github.com/tipcast/tipcast-api/internal/logger"
	"github.com/tipcast/tipcast-api/internal/session"
	"github.com/tipcast/tipcast-api/internal/signer"
	"github.com/tipcast/tipcast-api/internal/spend"
	"github.com/tipcast/tipcast-api/internal/wallet"
)

func main() {
	var (
		walletURL  = flag.String("wallet-url", "", "wallet provider RPC endpoint (required)")
		rpcURL     = flag.String("rpc-url", chain.DefaultRPCURL, "network RPC endpoint for reads")
		apiURL     = flag.String("api-url", "http://localhost:8000", "tipcast API base URL")
		dataDir    = flag.String("data-dir", ".tipper", "session store directory")
		signerKind = flag.String("signer", "local", "signer kind: local, privy or turnkey")
		allowance  = flag.String("allowance", "0.002", "requested allowance in ETH")
		tipTo      = flag.String("tip-to", "", "recipient address; when set, sends a tip")
		tipAmount  = flag.String("tip-amount", "0.0005", "tip amount in ETH")
		disconnect = flag.Bool("disconnect", false, "disconnect and wipe the session")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v\n", err)
	}
	logger.InitLogger()
	defer logger.Sync()

	if *walletURL == "" {
		log.Fatal("-wallet-url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := session.Open(*dataDir, logger.Log)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer store.Close()

	provider, err := wallet.DialProvider(ctx, *walletURL)
	if err != nil {
		log.Fatalf("Failed to dial wallet provider: %v", err)
	}
	reader, err := ethclient.DialContext(ctx, *rpcURL)
	if err != nil {
		log.Fatalf("Failed to dial network RPC: %v", err)
	}

	resolver, err := signer.NewResolver(store, walletapi.NewClient(*apiURL))
	if err != nil {
		log.Fatalf("Failed to create signer resolver: %v", err)
	}

	conn := wallet.NewConnection(provider, reader)
	service := spend.NewService(conn, store, resolver, os.Getenv("PAYMASTER_SERVICE_URL"))

	kind, err := signer.ParseKind(*signerKind)
	if err != nil {
		log.Fatalf("Invalid signer kind: %v", err)
	}
	if err := service.SetSignerKind(kind); err != nil {
		log.Fatalf("Failed to set signer kind: %v", err)
	}

	if *disconnect {
		if err := service.Disconnect(ctx); err != nil {
			log.Fatalf("Disconnect failed: %v", err)
		}
		fmt.Println("Disconnected and wiped session.")
		return
	}

	if err := run(ctx, conn, service, *allowance, *tipTo, *tipAmount); err != nil {
		log.Fatalf("Tipper failed: %v", err)
	}
}

func run(ctx context.Context, conn *wallet.Connection, service *spend.Service, allowance, tipTo, tipAmount string) error {
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	if err := conn.SwitchChain(ctx); err != nil {
		return err
	}
	address, _ := conn.Address()
	fmt.Printf("Connected: %s on %s\n", address.Hex(), chain.Name)

	if err := service.Restore(ctx); err != nil {
		return err
	}

	permission, _ := service.Permission()
	if permission == nil {
		linked, err := service.CreateLinkedAccount(ctx, allowance)
		if err != nil {
			return err
		}
		fmt.Printf("Linked sub-account: %s (allowance %s ETH/day)\n", linked.SubAccount.Hex(), allowance)
	} else {
		conn.SetAddresses(permission.Account, permission.Spender)
		fmt.Printf("Restored sub-account: %s\n", permission.Spender.Hex())
	}

	service.Refresh(ctx)
	if remaining, ok := service.Remaining(); ok {
		fmt.Printf("Remaining allowance: %s ETH\n", spend.FormatEther(remaining))
	}

	if tipTo == "" {
		return nil
	}
	if !common.IsHexAddress(tipTo) {
		return fmt.Errorf("invalid tip recipient: %s", tipTo)
	}

	valueWei, err := spend.ParseEther(tipAmount)
	if err != nil {
		return err
	}
	tip := spend.Call{
		To:    common.HexToAddress(tipTo),
		Value: (*hexutil.Big)(valueWei),
		Data:  hexutil.Bytes{},
	}

	handle, err := service.Execute(ctx, []spend.Call{tip}, valueWei)
	if err != nil {
		return err
	}
	if handle == "" {
		fmt.Println("Sub-account owner was just registered; retry the tip in a moment.")
		return nil
	}
	fmt.Printf("Tip submitted: %s\n", handle)
	return nil
}
