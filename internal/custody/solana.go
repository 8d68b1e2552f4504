package custody

import (
	"context"
	"fmt"
	"log"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// settlementDecimals is the smallest-unit scale of the reserve currency
// (USDC-style 6 decimals).
const settlementDecimals = 6

// SolanaRail implements Rail against an SPL token custody account.
type SolanaRail struct {
	rpcClient    *rpc.Client
	network      string
	mint         solana.PublicKey
	custodyOwner solana.PublicKey
	vaultWallet  *solana.Wallet
}

// NewSolanaRail creates a rail for the given network. mintAddress is the
// settlement token mint, privateKey the base58-encoded vault authority key.
func NewSolanaRail(network, mintAddress, privateKey string) (*SolanaRail, error) {
	var rpcURL string
	switch network {
	case "mainnet-beta":
		rpcURL = "https://api.mainnet-beta.solana.com"
	case "testnet":
		rpcURL = "https://api.testnet.solana.com"
	default:
		rpcURL = "https://api.devnet.solana.com"
	}

	mint, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid settlement mint address: %w", err)
	}

	wallet, err := solana.WalletFromPrivateKeyBase58(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault authority wallet: %w", err)
	}

	log.Printf("Custody rail ready on %s, vault authority %s", network, wallet.PublicKey())

	return &SolanaRail{
		rpcClient:    rpc.New(rpcURL),
		network:      network,
		mint:         mint,
		custodyOwner: wallet.PublicKey(),
		vaultWallet:  wallet,
	}, nil
}

// GetCustodyBalance sums the vault authority's token accounts for the
// settlement mint. This is the live figure fulfillment must check in
// addition to the cached reserve.
func (r *SolanaRail) GetCustodyBalance(ctx context.Context) (decimal.Decimal, error) {
	resp, err := r.rpcClient.GetTokenAccountsByOwner(
		ctx,
		r.custodyOwner,
		&rpc.GetTokenAccountsConfig{Mint: &r.mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get custody token accounts: %w", err)
	}

	var totalUnits uint64
	for _, account := range resp.Value {
		var tokenAccount token.Account
		decoder := bin.NewBinDecoder(account.Account.Data.GetBinary())
		if err := tokenAccount.UnmarshalWithDecoder(decoder); err != nil {
			log.Printf("Warning: failed to decode custody token account: %v", err)
			continue
		}
		totalUnits += tokenAccount.Amount
	}

	return decimal.New(int64(totalUnits), -settlementDecimals), nil
}

// PayOut transfers settlement currency from custody to the destination's
// associated token account and returns the transaction signature.
func (r *SolanaRail) PayOut(ctx context.Context, destination string, amount decimal.Decimal) (string, error) {
	destOwner, err := solana.PublicKeyFromBase58(destination)
	if err != nil {
		return "", fmt.Errorf("invalid payout destination: %w", err)
	}

	units := amount.Shift(settlementDecimals)
	if !units.IsInteger() || !units.IsPositive() {
		return "", fmt.Errorf("payout amount %s is not a positive multiple of the smallest unit", amount)
	}

	source, _, err := solana.FindAssociatedTokenAddress(r.custodyOwner, r.mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive custody token account: %w", err)
	}
	dest, _, err := solana.FindAssociatedTokenAddress(destOwner, r.mint)
	if err != nil {
		return "", fmt.Errorf("failed to derive destination token account: %w", err)
	}

	recent, err := r.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	transfer := token.NewTransferInstruction(
		uint64(units.IntPart()),
		source,
		dest,
		r.custodyOwner,
		nil,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transfer},
		recent.Value.Blockhash,
		solana.TransactionPayer(r.custodyOwner),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build payout transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(r.custodyOwner) {
			return &r.vaultWallet.PrivateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign payout transaction: %w", err)
	}

	sig, err := r.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send payout transaction: %w", err)
	}

	log.Printf("Payout of %s sent to %s: %s", amount, destination, sig)
	return sig.String(), nil
}

// WaitForConfirmation polls the signature status until confirmed or the
// deadline passes. Used by operational tooling, not the fulfillment path.
func (r *SolanaRail) WaitForConfirmation(ctx context.Context, signature string, timeout time.Duration) (bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false, err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, err := r.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return false, err
		}
		if len(status.Value) > 0 && status.Value[0] != nil {
			if status.Value[0].Err != nil {
				return false, fmt.Errorf("transaction execution failed")
			}
			cs := status.Value[0].ConfirmationStatus
			if cs == rpc.ConfirmationStatusConfirmed || cs == rpc.ConfirmationStatusFinalized {
				return true, nil
			}
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return false, nil
}
